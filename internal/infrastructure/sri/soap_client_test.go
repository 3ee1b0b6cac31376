package sri_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
)

const recibidaResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
      <RespuestaRecepcionComprobante>
        <estado>RECIBIDA</estado>
        <comprobantes/>
      </RespuestaRecepcionComprobante>
    </ns2:validarComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const devueltaResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
      <RespuestaRecepcionComprobante>
        <estado>DEVUELTA</estado>
        <comprobantes>
          <comprobante>
            <claveAcceso>1501202401179001234500110010010000001231234567814</claveAcceso>
            <mensajes>
              <mensaje>
                <identificador>43</identificador>
                <mensaje>CLAVE ACCESO REGISTRADA</mensaje>
                <informacionAdicional>La clave de acceso ya fue registrada</informacionAdicional>
                <tipo>ERROR</tipo>
              </mensaje>
            </mensajes>
          </comprobante>
        </comprobantes>
      </RespuestaRecepcionComprobante>
    </ns2:validarComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const autorizadoResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
      <RespuestaAutorizacionComprobante>
        <claveAccesoConsultada>1501202401179001234500110010010000001231234567814</claveAccesoConsultada>
        <numeroComprobantes>1</numeroComprobantes>
        <autorizaciones>
          <autorizacion>
            <estado>AUTORIZADO</estado>
            <numeroAutorizacion>1501202401179001234500110010010000001231234567814</numeroAutorizacion>
            <fechaAutorizacion>2024-01-15T10:31:02-05:00</fechaAutorizacion>
            <ambiente>PRUEBAS</ambiente>
            <comprobante><![CDATA[<factura id="comprobante" version="1.1.0"></factura>]]></comprobante>
            <mensajes/>
          </autorizacion>
        </autorizaciones>
      </RespuestaAutorizacionComprobante>
    </ns2:autorizacionComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const sinAutorizacionesResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
      <RespuestaAutorizacionComprobante>
        <claveAccesoConsultada>1501202401179001234500110010010000001231234567814</claveAccesoConsultada>
        <numeroComprobantes>0</numeroComprobantes>
        <autorizaciones/>
      </RespuestaAutorizacionComprobante>
    </ns2:autorizacionComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const faultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Servicio no disponible</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

// fakeSRI servidor que responde siempre lo mismo y guarda el último request.
type fakeSRI struct {
	status   int
	response []byte
	lastBody string
	lastType string
}

func (f *fakeSRI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.lastBody = string(body)
	f.lastType = r.Header.Get("Content-Type")
	w.Header().Set("Content-Type", "text/xml")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = w.Write(f.response)
}

func newFakeClient(t *testing.T, f *fakeSRI) *infrasri.SOAPSRIClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return infrasri.NewSOAPSRIClient(infrasri.Endpoints{
		Reception:     srv.URL + "/RecepcionComprobantesOffline",
		Authorization: srv.URL + "/AutorizacionComprobantesOffline",
	}, 5*time.Second)
}

// ──────────────────────────────────────────────────────────────────────────────
// Recepción
// ──────────────────────────────────────────────────────────────────────────────

func TestSendReceipt_Recibida(t *testing.T) {
	f := &fakeSRI{response: []byte(recibidaResponse)}
	client := newFakeClient(t, f)
	signed := []byte(`<factura id="comprobante"/>`)

	res, err := client.SendReceipt(context.Background(), signed)
	require.NoError(t, err)
	assert.True(t, res.Received())
	assert.Empty(t, res.Messages)

	assert.Contains(t, f.lastType, "text/xml")
	assert.Contains(t, f.lastBody, `<ns2:validarComprobante xmlns:ns2="http://ec.gob.sri.ws.recepcion">`)
	assert.Contains(t, f.lastBody, "<xml>"+base64.StdEncoding.EncodeToString(signed)+"</xml>")
}

func TestSendReceipt_DevueltaConMensajes(t *testing.T) {
	client := newFakeClient(t, &fakeSRI{response: []byte(devueltaResponse)})

	res, err := client.SendReceipt(context.Background(), []byte("<factura/>"))
	require.NoError(t, err)
	assert.False(t, res.Received())
	assert.Equal(t, infrasri.ReceptionReturned, res.Status)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "43", res.Messages[0].Identifier)
	assert.Equal(t, "CLAVE ACCESO REGISTRADA", res.Messages[0].Text)
	assert.Equal(t, "ERROR", res.Messages[0].Type)
	assert.Equal(t, "43: CLAVE ACCESO REGISTRADA (La clave de acceso ya fue registrada)", infrasri.JoinMessages(res.Messages))
}

func TestSendReceipt_RespuestaLatin1(t *testing.T) {
	resp := strings.Replace(devueltaResponse, `encoding="UTF-8"`, `encoding="ISO-8859-1"`, 1)
	resp = strings.Replace(resp, "La clave de acceso ya fue registrada", "Clave en validaci\xf3n", 1)
	client := newFakeClient(t, &fakeSRI{response: []byte(resp)})

	res, err := client.SendReceipt(context.Background(), []byte("<factura/>"))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Clave en validación", res.Messages[0].AdditionalInfo)
}

func TestSendReceipt_Fault(t *testing.T) {
	client := newFakeClient(t, &fakeSRI{status: http.StatusInternalServerError, response: []byte(faultResponse)})

	_, err := client.SendReceipt(context.Background(), []byte("<factura/>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, infrasri.ErrSOAPFault)
	assert.Contains(t, err.Error(), "Servicio no disponible")
}

func TestSendReceipt_RespuestaNoXML(t *testing.T) {
	client := newFakeClient(t, &fakeSRI{status: http.StatusBadGateway, response: []byte("Bad Gateway")})

	_, err := client.SendReceipt(context.Background(), []byte("<factura/>"))
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Autorización
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthorize_Autorizado(t *testing.T) {
	f := &fakeSRI{response: []byte(autorizadoResponse)}
	client := newFakeClient(t, f)

	res, err := client.Authorize(context.Background(), testAccessKey)
	require.NoError(t, err)
	assert.False(t, res.Pending())
	assert.Equal(t, infrasri.AuthorizationAuthorized, res.Status)
	assert.Equal(t, testAccessKey, res.Number)
	assert.Equal(t, `<factura id="comprobante" version="1.1.0"></factura>`, res.Comprobante)
	assert.True(t, res.AuthorizedAt.Equal(time.Date(2024, time.January, 15, 15, 31, 2, 0, time.UTC)))

	assert.Contains(t, f.lastBody, `<ns2:autorizacionComprobante xmlns:ns2="http://ec.gob.sri.ws.autorizacion">`)
	assert.Contains(t, f.lastBody, "<claveAccesoComprobante>"+testAccessKey+"</claveAccesoComprobante>")
}

func TestAuthorize_SinComprobantesQuedaPendiente(t *testing.T) {
	client := newFakeClient(t, &fakeSRI{response: []byte(sinAutorizacionesResponse)})

	res, err := client.Authorize(context.Background(), testAccessKey)
	require.NoError(t, err)
	assert.True(t, res.Pending())
	assert.Empty(t, res.Number)
}

func TestAuthorize_NoAutorizado(t *testing.T) {
	resp := strings.Replace(autorizadoResponse, "<estado>AUTORIZADO</estado>", "<estado>NO AUTORIZADO</estado>", 1)
	resp = strings.Replace(resp, "<mensajes/>", `<mensajes><mensaje><identificador>39</identificador><mensaje>FIRMA INVALIDA</mensaje><tipo>ERROR</tipo></mensaje></mensajes>`, 1)
	client := newFakeClient(t, &fakeSRI{response: []byte(resp)})

	res, err := client.Authorize(context.Background(), testAccessKey)
	require.NoError(t, err)
	assert.Equal(t, infrasri.AuthorizationNotAuthorized, res.Status)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "FIRMA INVALIDA", res.Messages[0].Text)
}

func TestAuthorize_ContextoCancelado(t *testing.T) {
	client := newFakeClient(t, &fakeSRI{response: []byte(autorizadoResponse)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Authorize(ctx, testAccessKey)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, infrasri.ErrTransport)
}

// ──────────────────────────────────────────────────────────────────────────────
// Endpoints
// ──────────────────────────────────────────────────────────────────────────────

func TestEndpointsFor(t *testing.T) {
	test, err := infrasri.EndpointsFor("1")
	require.NoError(t, err)
	assert.Contains(t, test.Reception, "celcer.sri.gob.ec")
	assert.Contains(t, test.Authorization, "AutorizacionComprobantesOffline")

	prod, err := infrasri.EndpointsFor("2")
	require.NoError(t, err)
	assert.Contains(t, prod.Reception, "://cel.sri.gob.ec")

	_, err = infrasri.EndpointsFor("3")
	assert.Error(t, err)
}
