// Package datasource resolves input locations into readable sources.
package datasource

import (
	"context"
	"io"
	"strings"

	"crmetl/internal/datasource/file"
	"crmetl/internal/datasource/httpds"
)

// Source is one input workbook. A missing input is reported with an error
// wrapping os.ErrNotExist.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// Resolve picks a Source for loc: http(s) URLs are fetched with client
// (a default client when nil), everything else is a local path.
func Resolve(loc string, client *httpds.Client) Source {
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		if client == nil {
			client = httpds.NewClient(httpds.Config{})
		}
		return httpds.NewRemote(client, loc)
	}
	return file.NewLocal(loc)
}

// ResolveAll applies Resolve to every location, keeping order.
func ResolveAll(locs []string, client *httpds.Client) []Source {
	out := make([]Source, len(locs))
	for i, l := range locs {
		out[i] = Resolve(l, client)
	}
	return out
}
