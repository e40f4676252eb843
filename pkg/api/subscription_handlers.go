package api

import (
	"fmt"
	"net/http"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/httputil"
)

// listPlans handles GET /plans
func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	active, err := s.plans.ListActive(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	response := make([]PlanResponse, 0, len(active))
	for _, plan := range active {
		response = append(response, newPlanResponse(plan))
	}
	httputil.WriteSuccess(w, response)
}

// getSubscription handles GET /subscription
func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	usage, err := s.subscriptions.Usage(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, usage)
}

// subscribe handles POST /subscription
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req SubscribeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.PlanID <= 0 {
		httputil.WriteUnprocessableEntity(w, "The plan id field is required.", map[string]string{"plan_id": "The plan id field is required."})
		return
	}

	resource := fmt.Sprintf("plan:%d", req.PlanID)
	sub, err := s.subscriptions.Subscribe(r.Context(), userID, req.PlanID)
	if err != nil {
		s.audit.LogFromRequest(r, auth.ActionSubscribe, resource, auth.StatusFailure, err)
		s.writeServiceError(w, r, err)
		return
	}
	s.audit.LogFromRequest(r, auth.ActionSubscribe, resource, auth.StatusSuccess, nil)

	httputil.WriteCreated(w, newSubscriptionResponse(sub, s.Now()))
}

// cancelSubscription handles DELETE /subscription
func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := s.subscriptions.Cancel(r.Context(), userID); err != nil {
		s.audit.LogFromRequest(r, auth.ActionCancel, "subscription", auth.StatusFailure, err)
		s.writeServiceError(w, r, err)
		return
	}
	s.audit.LogFromRequest(r, auth.ActionCancel, "subscription", auth.StatusSuccess, nil)

	httputil.WriteNoContent(w)
}

// subscriptionHistory handles GET /subscription/history
func (s *Server) subscriptionHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 20)
	if err != nil || limit <= 0 {
		httputil.WriteBadRequest(w, "limit must be a positive integer")
		return
	}
	limit = min(limit, 100)

	history, err := s.subscriptions.History(r.Context(), userID, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	now := s.Now()
	response := make([]SubscriptionResponse, 0, len(history))
	for _, sub := range history {
		response = append(response, newSubscriptionResponse(sub, now))
	}
	httputil.WriteSuccess(w, response)
}
