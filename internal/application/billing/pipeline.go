package billing

import (
	"context"
	"fmt"

	domainsri "github.com/jhoicas/sri-facturacion/internal/domain/sri"
	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
	"github.com/jhoicas/sri-facturacion/pkg/sri"
)

// Pipeline encadena los pasos para producir un comprobante firmado:
//
//	validar → clave de acceso → XML factura v1.1.0 → extraer PKCS#12 → firma XAdES-BES
//
// No guarda estado entre llamadas: el certificado se abre en cada Run.
type Pipeline struct {
	builder     *infrasri.XMLBuilderService
	extractor   sri.CertificateExtractor
	signer      sri.Signer
	numericCode string // fijo por configuración; vacío = aleatorio por comprobante
}

// NewPipeline construye el pipeline.
func NewPipeline(builder *infrasri.XMLBuilderService, extractor sri.CertificateExtractor, signer sri.Signer, numericCode string) *Pipeline {
	return &Pipeline{
		builder:     builder,
		extractor:   extractor,
		signer:      signer,
		numericCode: numericCode,
	}
}

// PipelineResult artefactos de una ejecución exitosa.
type PipelineResult struct {
	AccessKey   string
	UnsignedXML []byte
	SignedXML   []byte
	Totals      *domainsri.Computation
}

// Run ejecuta el pipeline completo. Ante cualquier error no devuelve artefactos parciales;
// el error conserva su tipo (*sri.ValidationError, *sri.InvalidCertificateError, ...).
func (p *Pipeline) Run(ctx context.Context, doc *domainsri.InvoiceDocument, p12 []byte, password string) (*PipelineResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := domainsri.ValidateDocument(doc); err != nil {
		return nil, err
	}
	totals, err := doc.Compute()
	if err != nil {
		return nil, err
	}

	accessKey, err := domainsri.BuildAccessKey(doc.AccessKeyInput(p.numericCode))
	if err != nil {
		return nil, fmt.Errorf("clave de acceso: %w", err)
	}

	unsigned, err := p.builder.Build(doc, accessKey)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	material, err := p.extractor.Extract(p12, password)
	if err != nil {
		return nil, err
	}
	signed, err := p.signer.Sign(unsigned, material)
	if err != nil {
		return nil, err
	}

	return &PipelineResult{
		AccessKey:   accessKey,
		UnsignedXML: unsigned,
		SignedXML:   signed,
		Totals:      totals,
	}, nil
}
