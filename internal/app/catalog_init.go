package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/catalog"
	"github.com/vladislavdragonenkov/cartstate/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cartstate/internal/health"
)

// initCatalog выбирает источник каталога для холодной гидрации.
// Checker возвращается только для HTTP-каталога.
func initCatalog(cfg Config, logger *log.Entry) (domain.Catalog, healthcheck.Checker) {
	url := strings.TrimSpace(cfg.CatalogURL)
	if url == "" {
		logger.Info("catalog url is not set, using static catalog")
		return catalog.NewStaticCatalog(catalog.DefaultProducts()), nil
	}

	httpCatalog := catalog.NewHTTPCatalog(url,
		catalog.WithLogger(logger.WithField("component", "catalog")),
		catalog.WithRequestTimeout(cfg.CatalogTimeout),
	)
	logger.WithField("catalog_url", url).Info("http catalog initialized")
	return httpCatalog, healthcheck.NewBreakerChecker("catalog", httpCatalog)
}
