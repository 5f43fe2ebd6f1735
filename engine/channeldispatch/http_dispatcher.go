// Package channeldispatch implementa engine.ChannelDispatcher: el despacho
// saliente de un nodo resuelto hacia el channel-delivery service externo
// (spec §4.5 paso 4 / SPEC_FULL C.1), vía un POST HTTP con reintentos.
package channeldispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Abraxas-365/relay/engine"
)

// Dispatcher implementa engine.ChannelDispatcher contra un channel-delivery
// service HTTP externo (uno por deployment, p.ej. el gateway de WhatsApp).
type Dispatcher struct {
	httpClient   *http.Client
	endpoint     string
	maxRetries   int
	successCodes []int
}

// New construye un Dispatcher contra el endpoint dado. endpoint debe aceptar
// un POST con el cuerpo JSON de ProcessNodeRequest.
func New(endpoint string) *Dispatcher {
	return &Dispatcher{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		endpoint:     endpoint,
		maxRetries:   2,
		successCodes: []int{http.StatusOK, http.StatusAccepted, http.StatusNoContent},
	}
}

var _ engine.ChannelDispatcher = (*Dispatcher)(nil)

// ProcessNode serializa el request y lo entrega al channel-delivery service,
// reintentando con backoff lineal hasta maxRetries tanto en fallos de
// transporte como en respuestas con un status fuera de successCodes.
func (d *Dispatcher) ProcessNode(ctx context.Context, req engine.ProcessNodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return engine.ErrChannelDispatch().WithDetail("reason", fmt.Sprintf("failed to marshal request: %v", err))
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("channeldispatch: retry %d/%d for node %s", attempt, d.maxRetries, req.NextNodeID)
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
		if err != nil {
			return engine.ErrChannelDispatch().WithDetail("reason", fmt.Sprintf("failed to build request: %v", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if d.isSuccess(resp.StatusCode) {
			return nil
		}
		lastErr = fmt.Errorf("channel-delivery service returned %d: %s", resp.StatusCode, string(respBody))
	}

	return engine.ErrChannelDispatch().
		WithDetail("node_id", req.NextNodeID).
		WithDetail("channel", req.Channel).
		WithDetail("reason", lastErr.Error())
}

func (d *Dispatcher) isSuccess(code int) bool {
	for _, c := range d.successCodes {
		if c == code {
			return true
		}
	}
	return false
}
