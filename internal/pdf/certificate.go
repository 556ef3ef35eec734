package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// CertificateData is what gets printed on the appended audit certificate page.
type CertificateData struct {
	DocumentName string
	SignerName   string
	SignerEmail  string
	SignedAt     time.Time
	IPAddress    string
	UserAgent    string
}

// renderCertificatePage produces a single-page PDF describing the signing
// act, to be appended after the document's own pages.
func renderCertificatePage(cert CertificateData) ([]byte, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(54, 54, 54)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 28, "Signature Certificate", "", 1, "L", false, 0, "")
	doc.Ln(8)

	doc.SetDrawColor(120, 120, 120)
	x, y := doc.GetXY()
	doc.Line(x, y, x+487, y)
	doc.Ln(16)

	rows := []struct {
		label string
		value string
	}{
		{"Document", cert.DocumentName},
		{"Signer", cert.SignerName},
		{"Email", cert.SignerEmail},
		{"Signed at (UTC)", cert.SignedAt.UTC().Format("2006-01-02 15:04:05 MST")},
		{"IP address", cert.IPAddress},
		{"User agent", cert.UserAgent},
	}
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(120, 18, row.label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 18, row.value, "", "L", false)
		doc.Ln(2)
	}

	doc.Ln(12)
	doc.SetFont("Helvetica", "I", 9)
	doc.SetTextColor(100, 100, 100)
	doc.MultiCell(0, 14,
		"This certificate was generated automatically when the signer completed the "+
			"identity-verified signing session for this document. The document hash on "+
			"record covers the signed artifact including this page.",
		"", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate page: %w", err)
	}
	return buf.Bytes(), nil
}
