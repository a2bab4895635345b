package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"call-filter/domain"
	"call-filter/infrastructure"

	"github.com/dgrijalva/jwt-go"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "call-filter"
	tokenLifetime = time.Minute * 60
)

type contextKey string

const profileIDKey contextKey = "id"

type Claims struct {
	Id       uint
	Username string
	jwt.StandardClaims
}

// ProfileID returns the admin id stored in the request context by Validate.
func ProfileID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(profileIDKey).(uint)
	return id, ok
}

// EnsureAdmin creates or updates the bootstrap admin account.
func EnsureAdmin(ctx context.Context, store *infrastructure.Store, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := store.SaveProfile(ctx, &domain.Profile{Username: username, PasswordHash: string(hash)}); err != nil {
		return fmt.Errorf("save admin profile: %w", err)
	}
	log.Info().Str("username", username).Msg("admin profile ready")
	return nil
}

func (s *Server) signToken(profile *domain.Profile) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Id:       profile.ID,
		Username: profile.Username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(tokenLifetime).Unix(),
			Issuer:    tokenIssuer,
		},
	})
	return token.SignedString([]byte(s.Config.AccessKey))
}

func (s *Server) HandleLogin() httprouter.Handle {
	type Input struct {
		Username string
		Password string
	}

	type Output struct {
		JWT string
	}

	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		input := &Input{}
		output := &Output{}

		err := s.Decode(w, r, input)
		if err != nil {
			s.Response(
				w, r,
				s.Error(http.StatusBadRequest, err.Error(), "HandleLogin", input.Username),
				http.StatusBadRequest,
			)
			return
		}

		profile, err := s.Store.GetProfileByUsername(r.Context(), input.Username)
		if err != nil && !errors.Is(err, infrastructure.ErrNotFound) {
			s.Response(
				w, r,
				s.Error(http.StatusInternalServerError, err.Error(), "HandleLogin", input.Username),
				http.StatusInternalServerError,
			)
			return
		}
		if profile == nil || bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(input.Password)) != nil {
			s.Response(
				w, r,
				s.Error(http.StatusUnauthorized, "Invalid username or password.", "HandleLogin", input.Username),
				http.StatusUnauthorized,
			)
			return
		}

		output.JWT, err = s.signToken(profile)
		if err != nil {
			s.Response(
				w, r,
				s.Error(http.StatusInternalServerError, err.Error(), "HandleLogin", input.Username),
				http.StatusInternalServerError,
			)
			return
		}

		s.Response(w, r, output, http.StatusOK)
	}
}

// Validate requires a valid bearer token and hands the caller a fresh one in
// the Authorization response header.
func (s *Server) Validate(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		header := r.Header.Get("Authorization")
		authHeader := strings.Split(header, " ")
		if len(authHeader) != 2 || !strings.EqualFold(authHeader[0], "Bearer") {
			s.Response(
				w, r,
				s.Error(http.StatusUnauthorized, "Bad Authorization header.", "Validate", header),
				http.StatusUnauthorized,
			)
			return
		}
		token := authHeader[1]

		parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("Unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(s.Config.AccessKey), nil
		})
		if err != nil || !parsed.Valid {
			message := "Invalid token."
			if err != nil {
				message = err.Error()
			}
			s.Response(
				w, r,
				s.Error(http.StatusUnauthorized, message, "Validate", nil),
				http.StatusUnauthorized,
			)
			return
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || claims.Issuer != tokenIssuer {
			s.Response(
				w, r,
				s.Error(http.StatusUnauthorized, "Invalid token claims.", "Validate", nil),
				http.StatusUnauthorized,
			)
			return
		}

		accessString, err := s.signToken(&domain.Profile{ID: claims.Id, Username: claims.Username})
		if err != nil {
			s.Response(
				w, r,
				s.Error(http.StatusInternalServerError, err.Error(), "Validate", nil),
				http.StatusInternalServerError,
			)
			return
		}

		w.Header().Set("Authorization", "Bearer "+accessString)

		ctx := context.WithValue(r.Context(), profileIDKey, claims.Id)
		r = r.WithContext(ctx)

		h(w, r, p)
	}
}
