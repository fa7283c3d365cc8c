package server

import (
	"net/http"

	"github.com/openpay-labs/x402-facilitator/types"
)

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req types.FacilitatorRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "paymentPayload and paymentRequirements are required")
		return
	}
	if err := validateEnvelope(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.pipeline.Verify(r.Context(), req.PaymentPayload, req.PaymentRequirements)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req types.FacilitatorRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "paymentPayload and paymentRequirements are required")
		return
	}
	if err := validateEnvelope(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.pipeline.Settle(r.Context(), req.PaymentPayload, req.PaymentRequirements)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Best-effort bookkeeping. The response below is already final;
	// reconciliation cannot change it.
	if res.Success && s.reconciler != nil {
		s.reconciler.Record(r.Context(), req.PaymentPayload, req.PaymentRequirements, res)
	}

	writeJSON(w, http.StatusOK, res)
}

// validateEnvelope rejects requests whose common fields are missing
// before any scheme is resolved.
func validateEnvelope(req *types.FacilitatorRequest) error {
	if err := req.PaymentPayload.Validate(); err != nil {
		return err
	}
	return req.PaymentRequirements.Validate()
}

func (s *Server) handleSupported(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Supported())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
