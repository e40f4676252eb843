// Package cli implements the laman-admin command tree used by operators to
// seed plans, provision users and tokens, and run rollovers by hand.
//
// # Commands
//
// seed: Insert or update the plan catalog
//
//	laman-admin seed
//	laman-admin seed -catalog ./plans.yaml
//
// watch: Keep the catalog in sync with a file
//
//	laman-admin watch -catalog ./plans.yaml
//
// user create: Provision a user and optionally subscribe them
//
//	laman-admin user create -email owner@example.com -plan Pro
//
// token: Issue, list and revoke API tokens
//
//	laman-admin token create -email owner@example.com -name ci -expires 720h
//	laman-admin token list -email owner@example.com
//	laman-admin token revoke -email owner@example.com -id 3
//
// rollover: Run one subscription rollover
//
//	laman-admin rollover -mode expire
package cli
