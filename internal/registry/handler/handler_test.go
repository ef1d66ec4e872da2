package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mfgverify/internal/registry/handler/mocks"
	"mfgverify/internal/registry/models"
	"mfgverify/pkg/domain"
	dErrors "mfgverify/pkg/domain-errors"
	"mfgverify/pkg/platform/httputil"
	"mfgverify/pkg/platform/sentinel"
	"mfgverify/pkg/requestcontext"
)

type heightFunc func(ctx context.Context) (domain.Height, error)

func (f heightFunc) Current(ctx context.Context) (domain.Height, error) { return f(ctx) }

func fixedHeight(h domain.Height) heightFunc {
	return func(context.Context) (domain.Height, error) { return h, nil }
}

type RegistryHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	height  heightFunc
	router  http.Handler
}

func TestRegistryHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistryHandlerSuite))
}

func (s *RegistryHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.height = fixedHeight(12345)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, heightFunc(func(ctx context.Context) (domain.Height, error) {
		return s.height(ctx)
	}), logger)

	r := chi.NewRouter()
	// Stands in for the bearer-token middleware: X-Test-Caller names the caller.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if c := req.Header.Get("X-Test-Caller"); c != "" {
				req = req.WithContext(requestcontext.WithCaller(req.Context(), domain.Principal(c)))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.Register(r)
	s.router = r
}

func (s *RegistryHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RegistryHandlerSuite) do(method, path, caller string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			s.Require().NoError(err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Test-Caller", caller)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RegistryHandlerSuite) errorBody(rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	var resp httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *RegistryHandlerSuite) TestRegister() {
	body := map[string]string{
		"id":             "MAN001",
		"name":           "Acme Pharma",
		"address":        "123 Medical Ave",
		"license_number": "LIC12345",
	}

	s.Run("created", func() {
		s.service.EXPECT().Register(gomock.Any(), domain.Principal("admin"), &models.RegisterRequest{
			ID: "MAN001", Name: "Acme Pharma", Address: "123 Medical Ave", LicenseNumber: "LIC12345",
		}).Return(nil)

		rec := s.do(http.MethodPost, "/manufacturers", "admin", body)
		s.Equal(http.StatusCreated, rec.Code)
		s.JSONEq(`{"ok":true}`, rec.Body.String())
	})

	s.Run("already exists maps to 409 with result code 100", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeConflict, "manufacturer already exists"))

		rec := s.do(http.MethodPost, "/manufacturers", "admin", body)
		s.Equal(http.StatusConflict, rec.Code)
		resp := s.errorBody(rec)
		s.Equal(dErrors.ContractAlreadyExists, resp.Err)
		s.Equal("conflict", resp.Error)
	})

	s.Run("non-admin maps to 403 with result code 403", func() {
		s.service.EXPECT().Register(gomock.Any(), domain.Principal("mallory"), gomock.Any()).
			Return(dErrors.New(dErrors.CodeForbidden, "caller is not the registry admin"))

		rec := s.do(http.MethodPost, "/manufacturers", "mallory", body)
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal(dErrors.ContractUnauthorized, s.errorBody(rec).Err)
	})

	s.Run("anonymous caller is rejected before the service", func() {
		rec := s.do(http.MethodPost, "/manufacturers", "", body)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("malformed body", func() {
		rec := s.do(http.MethodPost, "/manufacturers", "admin", `{"id":`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("internal errors hide their description", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(dErrors.Wrap(errors.New("disk full"), dErrors.CodeInternal, "failed to store manufacturer"))

		rec := s.do(http.MethodPost, "/manufacturers", "admin", body)
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.Empty(s.errorBody(rec).ErrorDescription)
	})
}

func (s *RegistryHandlerSuite) TestVerify() {
	s.Run("uses the ledger height, not the request", func() {
		s.service.EXPECT().Verify(gomock.Any(), domain.Principal("admin"), domain.ManufacturerID("MAN001"), domain.Height(12345)).
			Return(&models.Manufacturer{ID: "MAN001", Verified: true, VerificationHeight: 12345}, nil)

		rec := s.do(http.MethodPost, "/manufacturers/MAN001/verify", "admin", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"ok":true,"verification_height":12345}`, rec.Body.String())
	})

	s.Run("reports the stored height on re-verification", func() {
		s.height = fixedHeight(20000)
		s.service.EXPECT().Verify(gomock.Any(), gomock.Any(), domain.ManufacturerID("MAN001"), domain.Height(20000)).
			Return(&models.Manufacturer{ID: "MAN001", Verified: true, VerificationHeight: 12345}, nil)

		rec := s.do(http.MethodPost, "/manufacturers/MAN001/verify", "admin", nil)
		s.JSONEq(`{"ok":true,"verification_height":12345}`, rec.Body.String())
	})

	s.Run("unknown manufacturer maps to 404 with result code 404", func() {
		s.height = fixedHeight(1)
		s.service.EXPECT().Verify(gomock.Any(), gomock.Any(), domain.ManufacturerID("NOPE"), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "manufacturer not found"))

		rec := s.do(http.MethodPost, "/manufacturers/NOPE/verify", "admin", nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal(dErrors.ContractNotFound, s.errorBody(rec).Err)
	})

	s.Run("height source unavailable", func() {
		s.height = func(context.Context) (domain.Height, error) { return 0, sentinel.ErrUnavailable }

		rec := s.do(http.MethodPost, "/manufacturers/MAN001/verify", "admin", nil)
		s.Equal(http.StatusServiceUnavailable, rec.Code)
	})

	s.Run("height source failure", func() {
		s.height = func(context.Context) (domain.Height, error) { return 0, errors.New("boom") }

		rec := s.do(http.MethodPost, "/manufacturers/MAN001/verify", "admin", nil)
		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}

func (s *RegistryHandlerSuite) TestIsVerified() {
	s.Run("verified", func() {
		s.service.EXPECT().IsVerified(gomock.Any(), domain.ManufacturerID("MAN001")).Return(true, nil)
		rec := s.do(http.MethodGet, "/manufacturers/MAN001/verified", "", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"ok":true}`, rec.Body.String())
	})

	s.Run("unknown id is an error", func() {
		s.service.EXPECT().IsVerified(gomock.Any(), domain.ManufacturerID("NOPE")).
			Return(false, dErrors.New(dErrors.CodeNotFound, "manufacturer not found"))
		rec := s.do(http.MethodGet, "/manufacturers/NOPE/verified", "", nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal(dErrors.ContractNotFound, s.errorBody(rec).Err)
	})
}

func (s *RegistryHandlerSuite) TestGetDetails() {
	s.Run("absent is not an error", func() {
		s.service.EXPECT().GetDetails(gomock.Any(), domain.ManufacturerID("NOPE")).Return(nil, false)
		rec := s.do(http.MethodGet, "/manufacturers/NOPE", "", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"found":false,"manufacturer":null}`, rec.Body.String())
	})

	s.Run("present", func() {
		s.service.EXPECT().GetDetails(gomock.Any(), domain.ManufacturerID("MAN001")).Return(&models.Manufacturer{
			ID: "MAN001", Name: "Acme Pharma", LicenseNumber: "LIC12345",
		}, true)
		rec := s.do(http.MethodGet, "/manufacturers/MAN001", "", nil)
		s.Equal(http.StatusOK, rec.Code)

		var resp struct {
			Found        bool                `json:"found"`
			Manufacturer models.Manufacturer `json:"manufacturer"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.True(resp.Found)
		s.Equal("Acme Pharma", resp.Manufacturer.Name)
		s.False(resp.Manufacturer.Verified)
	})
}

func (s *RegistryHandlerSuite) TestTransferAdmin() {
	s.Run("admin hands over", func() {
		s.service.EXPECT().TransferAdmin(gomock.Any(), domain.Principal("admin"), domain.Principal("successor")).Return(nil)
		rec := s.do(http.MethodPost, "/registry/admin", "admin", map[string]string{"new_admin": " successor "})
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"ok":true}`, rec.Body.String())
	})

	s.Run("non-admin", func() {
		s.service.EXPECT().TransferAdmin(gomock.Any(), domain.Principal("mallory"), gomock.Any()).
			Return(dErrors.New(dErrors.CodeForbidden, "caller is not the registry admin"))
		rec := s.do(http.MethodPost, "/registry/admin", "mallory", map[string]string{"new_admin": "mallory"})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("current admin is public", func() {
		s.service.EXPECT().Admin(gomock.Any()).Return(domain.Principal("admin"))
		rec := s.do(http.MethodGet, "/registry/admin", "", nil)
		s.JSONEq(`{"admin":"admin"}`, rec.Body.String())
	})
}
