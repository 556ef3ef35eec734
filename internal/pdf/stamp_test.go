package pdf

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNGDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 20, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func testSourcePDF(t *testing.T, pages int) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		doc.CellFormat(0, 20, "Agreement body text", "", 1, "L", false, 0, "")
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestDecodeSignatureImage(t *testing.T) {
	img, err := DecodeSignatureImage(testPNGDataURL(t, 300, 90))
	require.NoError(t, err)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 300, img.Width)
	assert.Equal(t, 90, img.Height)
	assert.NotEmpty(t, img.Data)
}

func TestDecodeSignatureImage_rejectsGarbage(t *testing.T) {
	for _, in := range []string{
		"",
		"data:image/png;base64",
		"data:image/png;base64,!!!not-base64!!!",
		"data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image")),
	} {
		_, err := DecodeSignatureImage(in)
		assert.Error(t, err, "input %q must be rejected", in)
	}
}

func TestStamper_Sign(t *testing.T) {
	stamper := NewStamper()
	original := testSourcePDF(t, 2)

	img, err := DecodeSignatureImage(testPNGDataURL(t, 400, 120))
	require.NoError(t, err)

	signed, err := stamper.Sign(original, img,
		Placement{Page: 2, X: 72, Y: 600, Width: 200, Height: 60},
		CertificateData{
			DocumentName: "service-agreement.pdf",
			SignerName:   "Alice Example",
			SignerEmail:  "alice@example.com",
			SignedAt:     time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			IPAddress:    "203.0.113.7",
			UserAgent:    "integration-test",
		})
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.NotEqual(t, original, signed)

	pages, err := api.PageCount(bytes.NewReader(signed), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, pages, "certificate page must be appended")
}

func TestStamper_Sign_defaultsToPageOne(t *testing.T) {
	stamper := NewStamper()
	original := testSourcePDF(t, 1)

	img, err := DecodeSignatureImage(testPNGDataURL(t, 400, 120))
	require.NoError(t, err)

	signed, err := stamper.Sign(original, img,
		Placement{Page: 0, X: 100, Y: 500, Width: 180, Height: 50},
		CertificateData{DocumentName: "doc.pdf", SignerName: "Bob", SignerEmail: "bob@example.com", SignedAt: time.Now()})
	require.NoError(t, err)

	pages, err := api.PageCount(bytes.NewReader(signed), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestStamper_Sign_pageOutOfRange(t *testing.T) {
	stamper := NewStamper()
	original := testSourcePDF(t, 1)

	img, err := DecodeSignatureImage(testPNGDataURL(t, 400, 120))
	require.NoError(t, err)

	_, err = stamper.Sign(original, img,
		Placement{Page: 5, X: 0, Y: 0, Width: 100, Height: 40},
		CertificateData{DocumentName: "doc.pdf", SignedAt: time.Now()})
	assert.Error(t, err)
}

func TestStamper_Sign_rejectsNonPDF(t *testing.T) {
	stamper := NewStamper()
	img, err := DecodeSignatureImage(testPNGDataURL(t, 40, 20))
	require.NoError(t, err)

	_, err = stamper.Sign([]byte("this is not a pdf"), img,
		Placement{Page: 1, Width: 100, Height: 40},
		CertificateData{DocumentName: "doc.pdf", SignedAt: time.Now()})
	assert.Error(t, err)
}
