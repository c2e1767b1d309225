package apiv1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"glory-ledger/internal/domain"
	"glory-ledger/internal/domain/model"
	"glory-ledger/internal/infra/web"
	"glory-ledger/internal/usecase"
)

// Server implements the /api/v1 handlers on top of the use cases.
type Server struct {
	ledger    usecase.LedgerUseCase
	reconcile usecase.ReconciliationUseCase
	coupons   usecase.CouponUseCase
	users     usecase.UserUseCase
	log       *zerolog.Logger
}

func NewServer(
	ledger usecase.LedgerUseCase,
	reconcile usecase.ReconciliationUseCase,
	coupons usecase.CouponUseCase,
	users usecase.UserUseCase,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{ledger: ledger, reconcile: reconcile, coupons: coupons, users: users, log: &l}
}

// RegisterAPIV1 mounts every /api/v1 route on r.
func RegisterAPIV1(r chi.Router, s *Server, auth *web.AuthManager) {
	fail := func(w http.ResponseWriter, r *http.Request, err error) { s.fail(w, r, err) }

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pricing", s.getPricing)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(fail))

			r.Get("/me", s.getMe)
			r.Post("/requests", s.createRequest)
			r.Get("/requests", s.listOwnRequests)
			r.Post("/orders", s.createOrder)
			r.Post("/coupons", s.createCoupon)
			r.Post("/coupons/redeem", s.redeemCoupon)

			r.Route("/admin", func(r chi.Router) {
				r.Use(web.RequireAdmin(fail))

				r.Get("/requests", s.listAllRequests)
				r.Post("/requests/{id}/confirm", s.confirmRequest)
				r.Post("/requests/{id}/reject", s.rejectRequest)
				r.Get("/users", s.listUsers)
				r.Post("/users", s.createUser)
				r.Get("/users/{id}/balances", s.getUserBalances)
				r.Post("/users/{id}/balances", s.adjustUserBalances)
			})
		})
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, s.log, err)
}

func principal(r *http.Request) model.Principal { return web.PrincipalFrom(r.Context()) }

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("body", "request body is required")
		}
		return domain.Invalid("body", err.Error())
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.Invalid(key, "must be an integer")
	}
	return n, nil
}

func (s *Server) getPricing(w http.ResponseWriter, r *http.Request) {
	p := s.ledger.Pricing()
	writeJSON(w, http.StatusOK, Pricing{
		Basic:    p.Basic.StringFixed(2),
		Premium:  p.Premium.StringFixed(2),
		Currency: p.Currency,
		PayID:    p.PayID,
	})
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	u, err := s.users.Get(r.Context(), p, p.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	ct, err := model.ParseCreditType(body.CreditType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pr, err := s.ledger.SubmitPurchase(r.Context(), principal(r), ct, body.Credits, body.ExternalReference)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequest(pr))
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.ledger.SubmitOrder(r.Context(), principal(r), body.Basic, body.Premium, body.ExternalReference)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Items[PurchaseRequest]{Items: toRequests(items)})
}

func (s *Server) listOwnRequests(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	s.listRequests(w, r, p.UserID)
}

func (s *Server) listAllRequests(w http.ResponseWriter, r *http.Request) {
	s.listRequests(w, r, r.URL.Query().Get("user_id"))
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request, userID string) {
	f := model.RequestFilter{UserID: userID}
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := model.ParseRequestStatus(v)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		f.Status = st
	}
	var err error
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		s.fail(w, r, err)
		return
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.ledger.ListRequests(r.Context(), principal(r), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Items[PurchaseRequest]{Items: toRequests(list)})
}

func (s *Server) confirmRequest(w http.ResponseWriter, r *http.Request) {
	pr, err := s.reconcile.Confirm(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequest(pr))
}

func (s *Server) rejectRequest(w http.ResponseWriter, r *http.Request) {
	pr, err := s.reconcile.Reject(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequest(pr))
}

func (s *Server) createCoupon(w http.ResponseWriter, r *http.Request) {
	var body couponBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.coupons.Create(r.Context(), principal(r), body.Basic, body.Premium)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	var body redeemBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.coupons.Redeem(r.Context(), principal(r), body.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.users.List(r.Context(), principal(r), r.URL.Query().Get("q"), offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]User, 0, len(list))
	for _, u := range list {
		out = append(out, toUser(u))
	}
	writeJSON(w, http.StatusOK, Items[User]{Items: out})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var body createUserBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.users.Create(r.Context(), principal(r), body.Username, body.IsAdmin, body.BasicCredits, body.PremiumCredits)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(u))
}

func (s *Server) getUserBalances(w http.ResponseWriter, r *http.Request) {
	b, err := s.ledger.GetBalances(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) adjustUserBalances(w http.ResponseWriter, r *http.Request) {
	var body adjustBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.ledger.AdjustBalances(r.Context(), principal(r), chi.URLParam(r, "id"), body.DeltaBasic, body.DeltaPremium)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
