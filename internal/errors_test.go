package internal_test

import (
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/paras-verma7454/DriveDeck/internal"
)

var _ = Describe("AppError", func() {
	It("matches its sentinel through copies and wrapping", func() {
		err := fmt.Errorf("load: %w", internal.ErrInvalidToken.WithCause(errors.New("signature is invalid")))

		Expect(errors.Is(err, internal.ErrInvalidToken)).To(BeTrue())
		Expect(errors.Is(err, internal.ErrMissingAuthHeader)).To(BeFalse())
	})

	It("never mutates the sentinel", func() {
		_ = internal.ErrUnknownPermissions.WithDetails("cars.fly")
		Expect(internal.ErrUnknownPermissions.Details).To(BeEmpty())
	})

	It("exposes only the message to clients", func() {
		status, body := internal.ErrInsufficientPermissions.WithCause(errors.New("internal detail")).ToHTTPResponse()

		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(Equal(map[string]string{"message": "Forbidden: You do not have the necessary permissions."}))
	})

	It("appends details to the message", func() {
		_, body := internal.ErrUnknownPermissions.WithDetails("cars.fly", "boats.view").ToHTTPResponse()
		Expect(body["message"]).To(Equal("Unknown permission keys: cars.fly; boats.view"))
	})

	It("maps the authorization failures onto their statuses", func() {
		Expect(internal.ErrMissingAuthHeader.StatusCode).To(Equal(http.StatusForbidden))
		Expect(internal.ErrInvalidToken.StatusCode).To(Equal(http.StatusForbidden))
		Expect(internal.ErrUserNotFound.StatusCode).To(Equal(http.StatusNotFound))
		Expect(internal.ErrInsufficientPermissions.StatusCode).To(Equal(http.StatusForbidden))
	})
})
