// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"path/filepath"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/onsi/gomega/gbytes"
)

var _ = Describe("Auth commands", func() {
	var (
		h    *home
		user string
	)

	BeforeEach(func() {
		h = newHome()
		user = "user-" + ulid.Make().String()
	})

	Describe("signup", func() {
		It("creates the account and points at login", func() {
			s := h.run("secret\nsecret\n", "signup", "--user", user)

			Expect(s.ExitCode()).To(Equal(0))
			Expect(s.Out).To(gbytes.Say("Account created"))
			Expect(env.identity.HasUser(user)).To(BeTrue())
		})

		It("rejects mismatched passwords without calling the service", func() {
			before := env.identity.RequestCount()

			s := h.run("secret\nother\n", "signup", "--user", user)

			Expect(s.ExitCode()).To(Equal(1))
			Expect(s.Err).To(gbytes.Say("Passwords do not match"))
			Expect(env.identity.RequestCount()).To(Equal(before))
		})

		It("shows the service message for a taken user ID", func() {
			env.identity.AddUser(user, "secret")

			s := h.run("secret\nsecret\n", "signup", "--user", user)

			Expect(s.ExitCode()).To(Equal(1))
			Expect(s.Err).To(gbytes.Say("User already exists"))
		})
	})

	Describe("login", func() {
		BeforeEach(func() {
			env.identity.AddUser(user, "secret")
		})

		It("stores the token and lists users", func() {
			s := h.run("secret\n", "login", "--user", user)

			Expect(s.ExitCode()).To(Equal(0))
			Expect(s.Out).To(gbytes.Say("USER ID"))
			Expect(s.Out).To(gbytes.Say(user))
			Expect(filepath.Join(h.dir, "state", "authflow", "session.yaml")).To(BeAnExistingFile())

			s = h.run("", "users")
			Expect(s.ExitCode()).To(Equal(0))
			Expect(s.Out).To(gbytes.Say(user))
		})

		It("shows the service message for a bad password", func() {
			s := h.run("wrong\n", "login", "--user", user)

			Expect(s.ExitCode()).To(Equal(1))
			Expect(s.Err).To(gbytes.Say("Invalid credentials"))

			s = h.run("", "status")
			Expect(s.Out).To(gbytes.Say("logged out"))
		})

		It("forgets the session on logout", func() {
			Expect(h.run("secret\n", "login", "--user", user).ExitCode()).To(Equal(0))

			s := h.run("", "logout")
			Expect(s.ExitCode()).To(Equal(0))

			s = h.run("", "users")
			Expect(s.ExitCode()).To(Equal(1))
			Expect(s.Err).To(gbytes.Say("Not logged in"))
		})

		It("shares a session through redis", func() {
			other := newHome()
			args := []string{"--session-backend", "redis", "--redis-addr", env.redis.Addr()}

			s := h.run("secret\n", append([]string{"login", "--user", user}, args...)...)
			Expect(s.ExitCode()).To(Equal(0))

			s = other.run("", append([]string{"users"}, args...)...)
			Expect(s.ExitCode()).To(Equal(0))
			Expect(s.Out).To(gbytes.Say(user))
		})
	})

	Describe("unreachable service", func() {
		It("shows the generic message", func() {
			s := h.run("secret\n", "login", "--user", user, "--api-url", "http://127.0.0.1:1/api")

			Expect(s.ExitCode()).To(Equal(1))
			Expect(s.Err).To(gbytes.Say("An error occurred. Please try again."))
		})
	})
})
