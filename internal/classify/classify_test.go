package classify_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satriajat/helpdesk-management/internal/classify"
	"github.com/satriajat/helpdesk-management/internal/ticket"
)

var _ = Describe("MaskPII", func() {
	It("masks email addresses", func() {
		Expect(classify.MaskPII("contact budi.s@school.example.id please")).
			To(Equal("contact [EMAIL] please"))
	})

	It("masks phone numbers", func() {
		masked := classify.MaskPII("call me at +62 812-3456-7890 today")
		Expect(masked).NotTo(ContainSubstring("812"))
		Expect(masked).To(ContainSubstring("[PHONE]"))
	})

	It("masks long digit runs like national ids", func() {
		Expect(classify.MaskPII("my id is 3275012345678901")).
			To(Equal("my id is [ID]"))
	})

	It("leaves ordinary text untouched", func() {
		Expect(classify.MaskPII("the projector in room 12 is broken")).
			To(Equal("the projector in room 12 is broken"))
	})
})

var _ = Describe("Classify", func() {
	It("falls back to GENERAL with low confidence", func() {
		result := classify.Classify("something odd", "no idea what happened")
		Expect(result.Category).To(Equal("GENERAL"))
		Expect(result.Priority).To(Equal(ticket.PriorityMedium))
		Expect(result.Confidence).To(BeNumerically("<", 0.4))
	})

	It("classifies account lockouts", func() {
		result := classify.Classify("locked out", "my password stopped working after the reset")
		Expect(result.Category).To(Equal("ACCOUNT"))
		Expect(result.Rationale).To(ContainSubstring("password"))
	})

	It("grows confidence with more keyword hits", func() {
		one := classify.Classify("wifi slow", "")
		many := classify.Classify("wifi down", "the internet connection and vpn are unusable")
		Expect(many.Confidence).To(BeNumerically(">", one.Confidence))
		Expect(many.Confidence).To(BeNumerically("<=", 0.95))
	})

	It("prefers the first matching rule when categories overlap", func() {
		// "password" (ACCOUNT) and "install" (SOFTWARE) both appear
		result := classify.Classify("cannot install after password change", "")
		Expect(result.Category).To(Equal("ACCOUNT"))
	})

	It("raises the priority on urgency keywords", func() {
		result := classify.Classify("printer broken", "we have an exam tomorrow morning")
		Expect(result.Category).To(Equal("HARDWARE"))
		Expect(result.Priority).To(Equal(ticket.PriorityHigh))
	})

	It("classifies masked text, never the raw input", func() {
		result := classify.Classify("login issue for budi@school.example.id", "")
		Expect(result.Rationale).NotTo(ContainSubstring("budi@"))
	})
})
