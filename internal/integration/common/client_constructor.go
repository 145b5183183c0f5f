package common

import (
	"github.com/futig/uiprime-backend/internal/config"
	pkgHTTP "github.com/futig/uiprime-backend/pkg/http"
	"go.uber.org/zap"
)

// NewBaseConnector builds the outbound connector shared by integrations.
// Authentication is left to the caller because providers disagree on the
// header: auth options passed in extra wrap the logging transport, so the
// logged headers already carry (redacted) credentials.
func NewBaseConnector(cfg config.HTTPClientConfig, logger *zap.Logger, extra ...pkgHTTP.HttpOpts) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:  logger,
		BaseURL: cfg.Url,
	}

	opts := []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithMaxIdleConnsPerHost(cfg.MaxIdleConnsPerHost),
		pkgHTTP.WithRequestLogging(),
	}

	return pkgHTTP.NewConnector(connCfg, append(opts, extra...)...)
}
