package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"mediapick/internal/catalog"
	"mediapick/internal/models"
)

const (
	catalogTimeout = 15 * time.Second
	defaultRegion  = "US"
)

func parseKind(r *http.Request) (models.MediaKind, bool) {
	kind := models.MediaKind(chi.URLParam(r, "kind"))
	return kind, kind.Valid()
}

func parseItemID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be movie, series, or anime")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), catalogTimeout)
	defer cancel()

	genres, err := s.catalog.Genres(ctx, kind)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]catalog.Genre{"genres": genres})
}

type mediaDetailsResponse struct {
	Details   *catalog.Details        `json:"details"`
	Videos    []catalog.Video         `json:"videos"`
	Trailer   *catalog.Video          `json:"trailer,omitempty"`
	Region    string                  `json:"region"`
	Providers catalog.RegionProviders `json:"providers"`
}

func (s *Server) handleMediaDetails(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be movie, series, or anime")
		return
	}
	id, ok := parseItemID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	region, ok := s.resolveRegion(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "region must be a two-letter code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), catalogTimeout)
	defer cancel()

	var (
		details   *catalog.Details
		videos    []catalog.Video
		providers map[string]catalog.RegionProviders
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = s.catalog.Details(gctx, kind, id)
		return err
	})
	g.Go(func() error {
		var err error
		videos, err = s.catalog.Videos(gctx, kind, id)
		return err
	})
	g.Go(func() error {
		var err error
		providers, err = s.catalog.WatchProviders(gctx, kind, id)
		return err
	})
	if err := g.Wait(); err != nil {
		writeCatalogError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mediaDetailsResponse{
		Details:   details,
		Videos:    videos,
		Trailer:   catalog.PickTrailer(videos),
		Region:    region,
		Providers: providers[region],
	})
}

type providersResponse struct {
	Region    string                  `json:"region"`
	Providers catalog.RegionProviders `json:"providers"`
}

func (s *Server) handleMediaProviders(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be movie, series, or anime")
		return
	}
	id, ok := parseItemID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	region, ok := s.resolveRegion(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "region must be a two-letter code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), catalogTimeout)
	defer cancel()

	all, err := s.catalog.WatchProviders(ctx, kind, id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providersResponse{Region: region, Providers: all[region]})
}

func writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable, try again shortly")
		return
	}
	log.Printf("catalog request failed: %v", err)
	writeError(w, http.StatusInternalServerError, "internal")
}

// resolveRegion picks the watch region: explicit query param, then GeoIP on
// the client address, then defaultRegion.
func (s *Server) resolveRegion(r *http.Request) (string, bool) {
	if region := r.URL.Query().Get("region"); region != "" {
		region = strings.ToUpper(strings.TrimSpace(region))
		if len(region) != 2 {
			return "", false
		}
		return region, true
	}
	if s.geo != nil {
		if cc, ok := s.geo.Country(clientIP(r)); ok {
			return cc, true
		}
	}
	return defaultRegion, true
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection address.
func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
