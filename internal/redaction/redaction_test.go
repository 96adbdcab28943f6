package redaction_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satriajat/helpdesk-management/internal/redaction"
)

func sizePtr(v int64) *int64 { return &v }

var _ = Describe("Redaction", func() {
	Describe("MaskValue", func() {
		It("keeps the first and last two characters", func() {
			Expect(redaction.MaskValue("password reset broken")).To(Equal("pa*****************en"))
		})

		It("replaces short values entirely", func() {
			Expect(redaction.MaskValue("abcd")).To(Equal(redaction.RedactedToken))
			Expect(redaction.MaskValue("")).To(Equal(redaction.RedactedToken))
		})
	})

	Describe("MaskFilename", func() {
		It("keeps the extension", func() {
			masked := redaction.MaskFilename("salary_report.pdf")
			Expect(masked).To(HaveSuffix(".pdf"))
			Expect(masked).NotTo(ContainSubstring("salary_report"))
		})
	})

	Describe("RedactTicketExport", func() {
		var payload redaction.ExportPayload

		BeforeEach(func() {
			payload = redaction.ExportPayload{
				TicketID:         1,
				Title:            "Projector not working",
				Description:      "The projector in room 4 is dead",
				SensitivityLevel: redaction.SensitivityRegular,
				Attachments: []redaction.AttachmentMeta{
					{ID: 1, OriginalFilename: "photo.jpg", Size: sizePtr(1024), SensitivityLevel: redaction.SensitivityRegular},
					{ID: 2, OriginalFilename: "contract.pdf", Size: sizePtr(2048), SensitivityLevel: redaction.SensitivityRestricted},
				},
			}
		})

		It("passes regular tickets through untouched", func() {
			out := redaction.RedactTicketExport(payload, false)
			Expect(out.Title).To(Equal(payload.Title))
			Expect(out.Description).To(Equal(payload.Description))
		})

		It("masks confidential title and description without the export permission", func() {
			payload.SensitivityLevel = redaction.SensitivityConfidential
			out := redaction.RedactTicketExport(payload, false)
			Expect(out.Title).To(Equal("Pr*****************ng"))
			Expect(out.Title).NotTo(Equal(payload.Title))
			Expect(out.Description).NotTo(Equal(payload.Description))
		})

		It("leaves confidential content intact for permitted exporters", func() {
			payload.SensitivityLevel = redaction.SensitivityConfidential
			out := redaction.RedactTicketExport(payload, true)
			Expect(out.Title).To(Equal(payload.Title))
		})

		It("drops restricted attachments for unpermitted exporters", func() {
			out := redaction.RedactTicketExport(payload, false)
			Expect(out.Attachments).To(HaveLen(1))
			Expect(out.Attachments[0].ID).To(Equal(int64(1)))
		})

		It("masks restricted attachment metadata for permitted exporters", func() {
			out := redaction.RedactTicketExport(payload, true)
			Expect(out.Attachments).To(HaveLen(2))
			restricted := out.Attachments[1]
			Expect(restricted.OriginalFilename).To(HaveSuffix(".pdf"))
			Expect(restricted.OriginalFilename).NotTo(ContainSubstring("contract"))
			Expect(restricted.Size).To(BeNil())
			Expect(out.Attachments[0].Size).NotTo(BeNil())
		})
	})
})
