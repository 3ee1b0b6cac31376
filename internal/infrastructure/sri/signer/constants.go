// Constantes para firma XAdES-BES (Ficha Técnica de comprobantes electrónicos SRI).

package signer

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES = "http://uri.etsi.org/01903/v1.3.2#"

	AlgExcC14N         = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// TypeSignedProperties valor de Type en la Reference a xades:SignedProperties.
const TypeSignedProperties = "http://uri.etsi.org/01903#SignedProperties"

// Prefijos de los Id generados por firma.
const (
	signatureIDPrefix        = "Signature-"
	signedPropertiesIDPrefix = "SignedProperties-"
)
