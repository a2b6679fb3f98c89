package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/paras-verma7454/DriveDeck/api"
	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	authPostgres "github.com/paras-verma7454/DriveDeck/internal/auth/postgres"
	datamodel "github.com/paras-verma7454/DriveDeck/internal/core/datamodel/user"
	"github.com/paras-verma7454/DriveDeck/internal/core/events"
	"github.com/paras-verma7454/DriveDeck/internal/observability"
	"github.com/paras-verma7454/DriveDeck/internal/rbac"
	rbacPostgres "github.com/paras-verma7454/DriveDeck/internal/rbac/postgres"
	"github.com/paras-verma7454/DriveDeck/internal/transport"
	"github.com/paras-verma7454/DriveDeck/internal/transport/rest"
	"github.com/paras-verma7454/DriveDeck/internal/user"
	userPostgres "github.com/paras-verma7454/DriveDeck/internal/user/postgres"
	"github.com/paras-verma7454/DriveDeck/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const routerTestSecret = "router-test-secret-0123456789abcdef"

var _ = Describe("Router", func() {
	var (
		ctx        context.Context
		db         *gorm.DB
		router     *chi.Mux
		tokens     *auth.JWTTokenGenerator
		adminID    string
		vendorID   string
		vendorRole int64
	)

	do := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(raw)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	message := func(rec *httptest.ResponseRecorder) string {
		var body map[string]string
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body["message"]
	}

	tokenFor := func(id string) string {
		t, err := tokens.GenerateAccessToken(id)
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	BeforeEach(func() {
		ctx = context.Background()
		lg := logger.Discard()

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(datamodel.AllModels()...)).To(Succeed())

		rbacRepo := rbacPostgres.NewRepository(db)
		Expect(rbacRepo.Seed(ctx, rbac.Catalogue, rbac.DefaultGrants)).To(Succeed())

		authRepo := authPostgres.NewRepository(db)
		hash, err := auth.HashPassword("admin-password", bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		admin := &auth.User{FirstName: "Ada", UserName: "admin", Email: "admin@drivedeck.test"}
		_, err = authRepo.CreateUserWithRole(ctx, admin, hash, rbac.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		adminID = admin.ID

		cfg := &internal.Config{}
		cfg.Security = internal.SecurityConfig{JWTSecret: routerTestSecret, AccessTokenDuration: time.Hour}
		cfg.Observability.Metrics = internal.MetricsConfig{Enabled: true, Path: "/metrics"}

		metrics := observability.NewMetrics()
		bus := events.NewEventBus(lg)
		tokens = auth.NewJWTTokenGenerator(cfg.Security)

		authSvc := auth.NewService(authRepo, tokens, auth.NewMemoryCache(128, time.Minute), metrics, bcrypt.MinCost)
		authSvc.RegisterEventHandlers(bus)

		base := transport.NewBaseHandler(lg)
		router = rest.NewRouter(rest.Handlers{
			Config:  cfg,
			Health:  rest.NewHealthHandler(base, sqlx.NewDb(sqlDB, "sqlite3"), nil),
			Auth:    auth.NewHandler(authSvc),
			Gate:    auth.NewRBACAuthorization(metrics, lg),
			Users:   user.NewHandler(base, user.NewService(userPostgres.NewUserRepository(db), bus, lg)),
			RBAC:    rbac.NewHandler(base, rbac.NewService(rbacRepo, bus, lg)),
			Metrics: metrics,
		})

		rec := do(http.MethodPost, "/v1/auth/signup", "", map[string]string{
			"firstName": "Vic", "userName": "vic", "email": "vic@drivedeck.test",
			"password": "vendor-password", "role": rbac.RoleVendor,
		})
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		var signup struct {
			User struct{ ID string } `json:"user"`
			Role struct{ ID int64 }  `json:"role"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &signup)).To(Succeed())
		vendorID = signup.User.ID
		vendorRole = signup.Role.ID
	})

	Describe("authentication", func() {
		It("rejects a request without a bearer header", func() {
			rec := do(http.MethodGet, "/v1/user", "", nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(message(rec)).To(Equal("Authorization header is missing or incorrect"))
		})

		It("rejects a forged token", func() {
			rec := do(http.MethodGet, "/v1/user", "not-a-jwt", nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(message(rec)).To(Equal("Invalid or expired token"))
		})

		It("returns 404 for a token naming an unknown user", func() {
			rec := do(http.MethodGet, "/v1/user", tokenFor("00000000-0000-0000-0000-000000000000"), nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(message(rec)).To(Equal("User not found"))
		})

		It("returns 404 for a token whose subject is not a uuid", func() {
			rec := do(http.MethodGet, "/v1/user", tokenFor("abc"), nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(message(rec)).To(Equal("User not found"))
		})

		It("logs a seeded vendor in", func() {
			rec := do(http.MethodPost, "/v1/auth/login", "", map[string]string{
				"email": "vic@drivedeck.test", "password": "vendor-password",
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("permission gates", func() {
		It("exposes the vendor's entitlements", func() {
			rec := do(http.MethodGet, "/v1/user", tokenFor(vendorID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var view struct {
				Role        struct{ Name string } `json:"role"`
				Permissions []string              `json:"permissions"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
			Expect(view.Role.Name).To(Equal(rbac.RoleVendor))
			Expect(view.Permissions).To(ConsistOf(rbac.DefaultGrants[rbac.RoleVendor]))
		})

		It("denies the vendor the user listing", func() {
			rec := do(http.MethodGet, "/v1/users", tokenFor(vendorID), nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(message(rec)).To(Equal("Forbidden: You do not have the necessary permissions."))
		})

		It("lets admin through every gate without grants", func() {
			rec := do(http.MethodGet, "/v1/users", tokenFor(adminID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("vic@drivedeck.test"))
			Expect(rec.Body.String()).NotTo(ContainSubstring("admin@drivedeck.test"))

			Expect(do(http.MethodGet, "/v1/roles", tokenFor(adminID), nil).Code).To(Equal(http.StatusOK))
		})

		It("honours a replaced permission set on the next request", func() {
			Expect(do(http.MethodGet, "/v1/users", tokenFor(vendorID), nil).Code).To(Equal(http.StatusForbidden))

			path := fmt.Sprintf("/v1/roles/%d/permissions", vendorRole)
			rec := do(http.MethodPut, path, tokenFor(adminID), map[string][]string{
				"permissions": {rbac.PermCarsView, rbac.PermUsersView},
			})
			Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())

			Expect(do(http.MethodGet, "/v1/users", tokenFor(vendorID), nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/v1/roles", tokenFor(vendorID), nil).Code).To(Equal(http.StatusForbidden))
		})

		It("rejects unknown keys and leaves the role untouched", func() {
			path := fmt.Sprintf("/v1/roles/%d/permissions", vendorRole)
			rec := do(http.MethodPut, path, tokenFor(adminID), map[string][]string{
				"permissions": {rbac.PermCarsView, "cars.fly"},
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(message(rec)).To(ContainSubstring("cars.fly"))

			rec = do(http.MethodGet, path, tokenFor(adminID), nil)
			var role rbac.Role
			Expect(json.Unmarshal(rec.Body.Bytes(), &role)).To(Succeed())
			Expect(role.Permissions).To(ConsistOf(rbac.DefaultGrants[rbac.RoleVendor]))
		})

		It("locks a deactivated user out", func() {
			Expect(do(http.MethodGet, "/v1/user", tokenFor(vendorID), nil).Code).To(Equal(http.StatusOK))

			rec := do(http.MethodPost, "/v1/users/"+vendorID+"/deactivate", tokenFor(adminID), nil)
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			rec = do(http.MethodGet, "/v1/user", tokenFor(vendorID), nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(message(rec)).To(Equal("User not found"))
		})
	})

	Describe("operational endpoints", func() {
		It("serves health, ping and the API document", func() {
			Expect(do(http.MethodGet, "/v1/health", "", nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/v1/ping", "", nil).Code).To(Equal(http.StatusOK))

			rec := do(http.MethodGet, "/openapi.yml", "", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("DriveDeck API"))
		})

		It("exports request and decision metrics", func() {
			do(http.MethodGet, "/v1/users", tokenFor(vendorID), nil)

			rec := do(http.MethodGet, "/metrics", "", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`drivedeck_permission_decisions_total{decision="denied"} 1`))
			Expect(rec.Body.String()).To(ContainSubstring(`route="/v1/users`))
		})

		It("stamps a trace id and security headers on responses", func() {
			rec := do(http.MethodGet, "/v1/ping", "", nil)
			Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
			Expect(rec.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
		})

		It("answers unknown routes with a message body", func() {
			rec := do(http.MethodGet, "/v1/cars", "", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(message(rec)).To(Equal("Route not found"))
		})
	})

	It("documents every mounted /v1 route", func() {
		doc, err := api.Load(ctx)
		Expect(err).NotTo(HaveOccurred())

		err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, api.BasePath+"/") {
				return nil
			}
			path := strings.TrimPrefix(route, api.BasePath)
			if len(path) > 1 {
				path = strings.TrimSuffix(path, "/")
			}
			item := doc.Paths.Find(path)
			if item == nil {
				return fmt.Errorf("%s %s is not documented", method, route)
			}
			if item.GetOperation(method) == nil {
				return fmt.Errorf("%s %s has no documented operation", method, route)
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
	})
})
