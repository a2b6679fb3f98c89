package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		router   *chi.Mux
		mockRepo *mockRepository
		tokenGen *JWTTokenGenerator
		reached  string
	)

	do := func(method, path, header string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	bearer := func(userID string) string {
		token, err := tokenGen.GenerateAccessToken(userID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return "Bearer " + token
	}

	message := func(rec *httptest.ResponseRecorder) string {
		var body map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		gomega.Expect(body).To(gomega.HaveLen(1))
		return body["message"].(string)
	}

	ginkgo.BeforeEach(func() {
		reached = ""
		mockRepo = newMockRepository()
		tokenGen = NewJWTTokenGenerator(internal.SecurityConfig{JWTSecret: testSecret, AccessTokenDuration: time.Hour})
		svc := NewService(mockRepo, tokenGen, nil, nil, bcrypt.MinCost)
		h := NewHandler(svc)
		gate := NewRBACAuthorization(nil, logger.Discard())

		mark := func(name string) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				reached = name
				w.WriteHeader(http.StatusOK)
			}
		}

		router = chi.NewRouter()
		router.Post("/v1/auth/login", h.Login)
		router.Post("/v1/auth/signup", h.Signup)
		router.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Get("/v1/user", h.Me)
			r.With(gate.HasPermission("cars.create")).Post("/v1/cars", mark("create"))
			r.With(gate.HasPermission("cars.delete")).Delete("/v1/cars/{id}", mark("delete"))
			r.With(gate.HasPermission()).Get("/v1/admin-only", mark("admin-only"))
		})
	})

	ginkgo.Context("vendor holding cars.create and cars.edit", func() {
		ginkgo.It("may create", func() {
			rec := do(http.MethodPost, "/v1/cars", bearer("u-vendor"), nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(reached).To(gomega.Equal("create"))
		})

		ginkgo.It("may not delete", func() {
			rec := do(http.MethodDelete, "/v1/cars/5", bearer("u-vendor"), nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(message(rec)).To(gomega.Equal("Forbidden: You do not have the necessary permissions."))
			gomega.Expect(reached).To(gomega.BeEmpty())
		})
	})

	ginkgo.Context("admin with no stored grants", func() {
		ginkgo.It("passes every gate", func() {
			gomega.Expect(do(http.MethodDelete, "/v1/cars/5", bearer("u-admin"), nil).Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(do(http.MethodGet, "/v1/admin-only", bearer("u-admin"), nil).Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.Context("authentication failures", func() {
		ginkgo.It("answers 403 for a missing header", func() {
			rec := do(http.MethodPost, "/v1/cars", "", nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(message(rec)).To(gomega.Equal("Authorization header is missing or incorrect"))
			gomega.Expect(reached).To(gomega.BeEmpty())
		})

		ginkgo.It("answers 403 for a forged token", func() {
			rec := do(http.MethodPost, "/v1/cars", "Bearer eyJhbGciOiJIUzI1NiJ9.e30.x", nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(message(rec)).To(gomega.Equal("Invalid or expired token"))
		})

		ginkgo.It("answers 404 for a token of an unknown user", func() {
			rec := do(http.MethodPost, "/v1/cars", bearer("u-ghost"), nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
			gomega.Expect(message(rec)).To(gomega.Equal("User not found"))
		})
	})

	ginkgo.Describe("Me", func() {
		ginkgo.It("returns the principal view", func() {
			rec := do(http.MethodGet, "/v1/user", bearer("u-vendor"), nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var view PrincipalView
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(gomega.Succeed())
			gomega.Expect(view.Role.Name).To(gomega.Equal("vendor"))
			gomega.Expect(view.Permissions).To(gomega.Equal([]string{"cars.create", "cars.edit"}))
		})
	})

	ginkgo.Describe("Login and Signup", func() {
		ginkgo.It("accepts the PascalCase keys older clients send", func() {
			rec := do(http.MethodPost, "/v1/auth/login", "", []byte(`{"Email":"admin@example.com","Password":"correct_password"}`))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var resp AuthResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("answers 401 for a wrong password", func() {
			rec := do(http.MethodPost, "/v1/auth/login", "", []byte(`{"email":"admin@example.com","password":"nope"}`))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(message(rec)).To(gomega.Equal("Invalid email or password"))
		})

		ginkgo.It("answers 400 for malformed JSON", func() {
			rec := do(http.MethodPost, "/v1/auth/signup", "", []byte(`{`))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("answers 409 for a taken username", func() {
			body := []byte(`{"FirstName":"V","UserName":"vendor","Email":"new@example.com","Password":"pw"}`)

			rec := do(http.MethodPost, "/v1/auth/signup", "", body)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusConflict))
			gomega.Expect(message(rec)).To(gomega.Equal("Email or UserName already exists"))
		})

		ginkgo.It("creates the account and the token works right away", func() {
			body := []byte(`{"firstName":"New","userName":"newbie","email":"newbie@example.com","password":"pw","role":"vendor"}`)

			rec := do(http.MethodPost, "/v1/auth/signup", "", body)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
			var resp AuthResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			me := do(http.MethodGet, "/v1/user", "Bearer "+resp.Token, nil)
			gomega.Expect(me.Code).To(gomega.Equal(http.StatusOK))
		})
	})
})
