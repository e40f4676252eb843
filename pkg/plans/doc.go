// Package plans manages the subscription plan catalog: the plan type,
// the built-in and YAML-defined catalogs, persistence, an LRU read cache,
// and seeding (once, or continuously while a catalog file is edited).
//
// Plans are reference data. They are created and updated by name and are
// never deleted, since subscriptions keep pointing at them; retire a plan
// by setting is_active to false.
package plans
