package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Placement locates a signature box on a page. Coordinates use the stored
// top-left-origin convention; Page is 1-indexed, 0 meaning unset.
type Placement struct {
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Stamper mutates PDF documents: it embeds a signature image at a field's
// position and appends an audit certificate page.
type Stamper struct {
	conf *model.Configuration
}

// NewStamper creates a Stamper with relaxed validation, since documents
// uploaded by owners come from arbitrary producers.
func NewStamper() *Stamper {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Stamper{conf: conf}
}

// Sign embeds img into original at the placement and appends a certificate
// page, returning the bytes of the final signed artifact.
func (s *Stamper) Sign(original []byte, img SignatureImage, p Placement, cert CertificateData) ([]byte, error) {
	pageCount, err := api.PageCount(bytes.NewReader(original), s.conf)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		return nil, fmt.Errorf("field targets page %d but document has %d page(s)", page, pageCount)
	}

	dims, err := api.PageDims(bytes.NewReader(original), s.conf)
	if err != nil {
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}
	pageHeight := dims[page-1].Height

	stamped, err := s.embedImage(original, img, page, pageHeight, p)
	if err != nil {
		return nil, err
	}

	certPage, err := renderCertificatePage(cert)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	err = api.MergeRaw([]io.ReadSeeker{bytes.NewReader(stamped), bytes.NewReader(certPage)}, &out, false, s.conf)
	if err != nil {
		return nil, fmt.Errorf("append certificate page: %w", err)
	}
	return out.Bytes(), nil
}

// embedImage stamps the signature image onto the target page at the field
// box, converted into the PDF's bottom-left coordinate system.
func (s *Stamper) embedImage(original []byte, img SignatureImage, page int, pageHeight float64, p Placement) ([]byte, error) {
	// pdfcpu scales image stamps by a factor of their intrinsic size, so
	// derive the factor from the field box width. Factors above 1 are not
	// accepted; a tiny source image simply renders at its natural size.
	scale := p.Width / float64(img.Width)
	if scale > 1 {
		scale = 1
	}
	renderedHeight := float64(img.Height) * scale

	offX := p.X
	offY := FlipY(pageHeight, p.Y, renderedHeight)

	desc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:%.4f abs, rot:0", offX, offY, scale)
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(img.Data), desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("build image stamp: %w", err)
	}

	var out bytes.Buffer
	err = api.AddWatermarks(bytes.NewReader(original), &out, []string{strconv.Itoa(page)}, wm, s.conf)
	if err != nil {
		return nil, fmt.Errorf("embed signature image: %w", err)
	}
	return out.Bytes(), nil
}
