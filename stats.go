/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

func serveStats(cfg *Config, rt *Router, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		data, err := json.Marshal(rt.registry.Stats())
		if err != nil {
			http.Error(w, "stats unavailable", http.StatusInternalServerError)
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(append(data, '\n'))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Stats (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000

	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	value := float64(bytes)
	prefixes := "kMGTPE"
	i := -1
	for value >= float64(unit) && i < len(prefixes)-1 {
		value /= float64(unit)
		i++
	}

	return fmt.Sprintf("%.1f %cB", value, prefixes[i])
}
