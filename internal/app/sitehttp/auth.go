package sitehttp

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourname/staticserve/internal/config"
	"github.com/yourname/staticserve/internal/models"
	"github.com/yourname/staticserve/pkg/deployproto"
	"github.com/yourname/staticserve/pkg/httperrors"
)

// authenticator пропускает запрос со статическим токеном в заголовке "token"
// или с валидным Bearer JWT. Без настроенных token и jwt загрузка запрещена.
type authenticator struct {
	token  []byte
	secret []byte
	parser *jwt.Parser
}

func newAuthenticator(token string, cfg *config.JWT) *authenticator {
	a := &authenticator{}
	if token != "" {
		a.token = []byte(token)
	}
	if cfg != nil && cfg.Secret != "" {
		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
		if cfg.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(cfg.Issuer))
		}
		if cfg.Audience != "" {
			opts = append(opts, jwt.WithAudience(cfg.Audience))
		}
		a.secret = []byte(cfg.Secret)
		a.parser = jwt.NewParser(opts...)
	}
	return a
}

func (a *authenticator) check(r *http.Request) error {
	if len(a.token) > 0 {
		if got := r.Header.Get(deployproto.HeaderToken); got != "" &&
			subtle.ConstantTimeCompare([]byte(got), a.token) == 1 {
			return nil
		}
	}

	if a.parser != nil {
		if raw := bearerToken(r); raw != "" {
			_, err := a.parser.Parse(raw, func(*jwt.Token) (any, error) { return a.secret, nil })
			if err != nil {
				return fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
			}
			return nil
		}
	}

	return models.ErrUnauthorized
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get(deployproto.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.check(r); err != nil {
			s.Logger.Warn("upload rejected", "remote", r.RemoteAddr, "error", err)
			httperrors.Write(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
