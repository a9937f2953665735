package service

import (
	"context"
	"net/http"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
)

type contextKey struct{}

var userKey = contextKey{}

// RequireUser rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func (service *AuthService) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		user, err := service.Authenticate(req.Context(), req.Header.Get("Authorization"))
		if err != nil {
			writeError(service.logger, w, req, err)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithUser(req.Context(), user)))
	})
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}
