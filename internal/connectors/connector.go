package connectors

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Connector copies produced artifacts to an external target (cloud/object store/etc).
type Connector interface {
	Name() string
	StoreArtifact(ctx context.Context, requestID, name, path string) error
}

// LoadFromEnv instantiates connectors declared in CONNECTORS env variable.
func LoadFromEnv(ctx context.Context, logger zerolog.Logger) []Connector {
	raw := os.Getenv("CONNECTORS")
	if raw == "" {
		return nil
	}
	var instances []Connector
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		var (
			conn Connector
			err  error
		)
		switch token {
		case "s3":
			conn, err = NewS3Connector(ctx)
		case "azure":
			conn, err = NewAzureBlobConnector(ctx)
		case "sftp":
			conn, err = NewSFTPConnector()
		case "ftps":
			conn, err = NewFTPSConnector()
		default:
			err = fmt.Errorf("unknown connector %q", token)
		}
		if err != nil {
			logger.Error().Err(err).Str("connector", token).Msg("failed to init connector")
			continue
		}
		logger.Info().Str("connector", conn.Name()).Msg("initialized connector")
		instances = append(instances, conn)
	}
	return instances
}

// Archiver fans an artifact out to every connector in parallel.
type Archiver struct {
	connectors []Connector
	strict     bool
	logger     zerolog.Logger
}

func NewArchiver(conns []Connector, strict bool, logger zerolog.Logger) *Archiver {
	return &Archiver{
		connectors: conns,
		strict:     strict,
		logger:     logger.With().Str("component", "archiver").Logger(),
	}
}

// Names lists the configured connectors.
func (a *Archiver) Names() []string {
	if a == nil {
		return nil
	}
	names := make([]string, len(a.connectors))
	for i, c := range a.connectors {
		names[i] = c.Name()
	}
	return names
}

// Archive stores the artifact at path under requestID/name on every connector.
// Failures are logged; in strict mode the first one is returned.
func (a *Archiver) Archive(ctx context.Context, requestID, name, path string) error {
	if a == nil || len(a.connectors) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, conn := range a.connectors {
		g.Go(func() error {
			if err := conn.StoreArtifact(gctx, requestID, name, path); err != nil {
				a.logger.Error().
					Err(err).
					Str("connector", conn.Name()).
					Str("request_id", requestID).
					Str("artifact", name).
					Msg("connector failed to store artifact")
				if a.strict {
					return fmt.Errorf("connector %s artifact: %w", conn.Name(), err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
