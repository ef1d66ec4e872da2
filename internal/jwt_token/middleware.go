package jwttoken

import authmw "mfgverify/pkg/platform/middleware/auth"

// CallerValidator exposes a Service to the auth middleware.
type CallerValidator struct{ svc *Service }

func NewCallerValidator(svc *Service) CallerValidator { return CallerValidator{svc: svc} }

func (v CallerValidator) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := v.svc.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{Subject: claims.Subject, JTI: claims.ID}, nil
}
