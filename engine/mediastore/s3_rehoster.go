// Package mediastore implementa engine.MediaRehoster: sube los adjuntos de
// media_url de un evento entrante a un bucket S3 propio y retorna la URL
// estable resultante, para que el flow no dependa de las URLs firmadas
// temporales que Meta/Telegram devuelven (expiran a las pocas horas, mucho
// antes de que un delay largo del flow las vuelva a necesitar).
package mediastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Abraxas-365/relay/engine"
)

// S3Rehoster implementa engine.MediaRehoster descargando el adjunto vía HTTP
// y subiéndolo a un bucket propio con una key derivada del contenido.
type S3Rehoster struct {
	client     *s3.Client
	bucket     string
	httpClient *http.Client
	urlPrefix  string
}

// Config credenciales y bucket destino para el re-hosting de adjuntos.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint permite apuntar a un proveedor S3-compatible (p.ej. MinIO en
	// desarrollo); vacío usa el endpoint estándar de AWS para Region.
	Endpoint string
}

// New construye un S3Rehoster a partir de credenciales estáticas; no hace
// ninguna llamada de red hasta el primer Rehost.
func New(cfg Config) *S3Rehoster {
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Rehoster{
		client:     client,
		bucket:     cfg.Bucket,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		urlPrefix:  fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", cfg.Bucket, cfg.Region),
	}
}

var _ engine.MediaRehoster = (*S3Rehoster)(nil)

// Rehost descarga sourceURL y lo sube a `media/<sha256-prefix>-<uuid><ext>`
// dentro del bucket configurado, retornando la URL pública resultante. Un
// error de red o de PutObject se envuelve en engine.ErrMediaRehostFailed; el
// caller decide si eso debe abortar el intake o solo degradar a la URL
// original.
func (r *S3Rehoster) Rehost(ctx context.Context, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", engine.ErrMediaRehostFailed().WithDetail("reason", fmt.Sprintf("build request: %v", err))
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", engine.ErrMediaRehostFailed().WithDetail("reason", fmt.Sprintf("fetch source: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", engine.ErrMediaRehostFailed().WithDetail("reason", fmt.Sprintf("source returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", engine.ErrMediaRehostFailed().WithDetail("reason", fmt.Sprintf("read source: %v", err))
	}

	contentType := resp.Header.Get("Content-Type")
	key := r.buildKey(sourceURL, body)

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(string(body)),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", engine.ErrMediaRehostFailed().WithDetail("reason", fmt.Sprintf("put object: %v", err))
	}

	return r.urlPrefix + key, nil
}

// buildKey deriva la key del adjunto: un prefijo de su hash de contenido más
// un uuid nuevo en cada llamada, así que cada subida recibe una key distinta
// (los re-intentos del mismo adjunto no se deduplican).
func (r *S3Rehoster) buildKey(sourceURL string, body []byte) string {
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])[:16]
	ext := path.Ext(strings.SplitN(sourceURL, "?", 2)[0])
	return fmt.Sprintf("media/%s-%s%s", hash, uuid.NewString(), ext)
}
