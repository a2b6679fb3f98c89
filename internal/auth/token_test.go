package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/paras-verma7454/DriveDeck/internal"
)

var _ = ginkgo.Describe("JWTTokenGenerator", func() {
	var gen *JWTTokenGenerator

	ginkgo.BeforeEach(func() {
		gen = NewJWTTokenGenerator(internal.SecurityConfig{JWTSecret: testSecret, AccessTokenDuration: time.Hour})
	})

	ginkgo.Describe("VerifyHeader", func() {
		ginkgo.It("returns the subject of a valid bearer token", func() {
			token, err := gen.GenerateAccessToken("u-vendor")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			subject, err := gen.VerifyHeader("Bearer " + token)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(subject).To(gomega.Equal("u-vendor"))
		})

		ginkgo.DescribeTable("rejects missing or non-bearer headers",
			func(header string) {
				_, err := gen.VerifyHeader(header)
				gomega.Expect(err).To(gomega.MatchError(internal.ErrMissingAuthHeader))
			},
			ginkgo.Entry("empty", ""),
			ginkgo.Entry("basic scheme", "Basic dXNlcjpwYXNz"),
			ginkgo.Entry("lowercase bearer", "bearer abc"),
			ginkgo.Entry("no space", "Bearerabc"),
		)

		ginkgo.It("treats an empty bearer token as invalid", func() {
			_, err := gen.VerifyHeader("Bearer ")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects a token signed with another secret", func() {
			other := NewJWTTokenGenerator(internal.SecurityConfig{JWTSecret: "another-secret-another-secret-xx", AccessTokenDuration: time.Hour})
			token, _ := other.GenerateAccessToken("u-vendor")

			_, err := gen.VerifyHeader("Bearer " + token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects an expired token", func() {
			expired := NewJWTTokenGenerator(internal.SecurityConfig{JWTSecret: testSecret, AccessTokenDuration: -time.Minute})
			token, _ := expired.GenerateAccessToken("u-vendor")

			_, err := gen.VerifyHeader("Bearer " + token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("Verify", func() {
		ginkgo.It("rejects a non-HS256 algorithm", func() {
			claims := &Claims{UserID: "u-vendor"}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = gen.Verify(token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects an unsigned token", func() {
			token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u-admin"}).
				SignedString(jwt.UnsafeAllowNoneSignatureType)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = gen.Verify(token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects a token without the userId claim", func() {
			token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-vendor"}).SignedString([]byte(testSecret))

			_, err := gen.Verify(token)

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects garbage", func() {
			_, err := gen.Verify("not-a-jwt")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("GenerateAccessToken", func() {
		ginkgo.It("omits exp when the duration is zero", func() {
			noExpiry := NewJWTTokenGenerator(internal.SecurityConfig{JWTSecret: testSecret})
			token, err := noExpiry.GenerateAccessToken("u-admin")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			claims, err := noExpiry.Verify(token)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.ExpiresAt).To(gomega.BeNil())
			gomega.Expect(claims.Subject).To(gomega.Equal("u-admin"))
		})

		ginkgo.It("sets exp from the configured duration", func() {
			token, _ := gen.GenerateAccessToken("u-admin")

			claims, err := gen.Verify(token)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.ExpiresAt.Time).To(gomega.BeTemporally("~", time.Now().Add(time.Hour), 5*time.Second))
		})
	})
})
