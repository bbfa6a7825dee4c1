//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/biogo/hts/sam"
	"github.com/pierrec/lz4"
	"gonum.org/v1/gonum/stat"

	"github.com/artic-network/align-trim/lib/scheme"
)

const bedGraphPrecision = 0.000001

// Stats accumulates per-primer hit counts and per-base depth of kept,
// trimmed reads. All state lives in memory until one of the Write
// functions flushes it after the record loop.
type Stats struct {
	PrimerHits map[string]int
	depth      map[string][]float64
	amplicons  []scheme.Amplicon
}

// NewStats allocates the accumulators, with one depth track per
// reference.
func NewStats(refLengths []scheme.RefLength, amplicons []scheme.Amplicon) *Stats {
	s := &Stats{
		PrimerHits: make(map[string]int),
		depth:      make(map[string][]float64, len(refLengths)),
		amplicons:  amplicons,
	}
	for _, rl := range refLengths {
		s.depth[rl.Name] = make([]float64, rl.Length+1)
	}
	return s
}

// AddHit counts one primer match.
func (s *Stats) AddHit(primerName string) {
	s.PrimerHits[primerName]++
}

// AddDepth adds the aligned (reference and read consuming) span of a kept
// record to its reference depth track.
func (s *Stats) AddDepth(r *sam.Record) {
	if r.Ref == nil {
		return
	}
	track, ok := s.depth[r.Ref.Name()]
	if !ok {
		return
	}
	pos := r.Pos
	for _, co := range r.Cigar {
		con := co.Type().Consumes()
		if con.Reference == 1 {
			if con.Query == 1 {
				for i := pos; i < pos+co.Len() && i < len(track); i++ {
					if i >= 0 {
						track[i]++
					}
				}
			}
			pos += co.Len()
		}
	}
}

// MeanAmpliconDepth returns the mean per-base depth over the amplicon
// span, or 0 for an unknown reference.
func (s *Stats) MeanAmpliconDepth(a scheme.Amplicon) float64 {
	track, ok := s.depth[a.Chrom]
	if !ok {
		return 0
	}
	start := a.Start
	if start < 0 {
		start = 0
	}
	end := a.End
	if end > len(track) {
		end = len(track)
	}
	if end <= start {
		return 0
	}
	return stat.Mean(track[start:end], nil)
}

// writeAtomic runs write against a temporary file in path's directory
// and renames it over path on success. A failed flush leaves no partial
// report behind.
func writeAtomic(path string, write func(w io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if err = write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err = f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}

// WritePrimerHits writes the tab-separated primer-hit report, one row per
// observed primer sorted by name.
func (s *Stats) WritePrimerHits(path string) error {
	names := make([]string, 0, len(s.PrimerHits))
	for name := range s.PrimerHits {
		names = append(names, name)
	}
	sort.Strings(names)
	return writeAtomic(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, "primer\thits\n"); err != nil {
			return err
		}
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "%s\t%d\n", name, s.PrimerHits[name]); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteAmpliconDepths writes the tab-separated amplicon-depth report, one
// row per (chrom, amplicon number) in scheme order.
func (s *Stats) WriteAmpliconDepths(path string) error {
	return writeAtomic(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, "chrom\tamplicon\tmean_depth\n"); err != nil {
			return err
		}
		for _, a := range s.amplicons {
			mean := s.MeanAmpliconDepth(a)
			if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", a.Chrom, a.Number, strconv.FormatFloat(mean, 'f', 2, 64)); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteDepthProfile writes the per-base depth tracks as bedgraph. Format
// is "bedgraph", "bedgraph+lz4" or "bedgraph+lz4hc".
func (s *Stats) WriteDepthProfile(path, format string) error {
	switch format {
	case "bedgraph", "bedgraph+lz4", "bedgraph+lz4hc":
	default:
		return fmt.Errorf("Unknown depth profile format %q", format)
	}
	return writeAtomic(path, func(w io.Writer) error {
		var lzWriter *lz4.Writer
		switch format {
		case "bedgraph+lz4":
			lzWriter = lz4.NewWriter(w)
			w = lzWriter
		case "bedgraph+lz4hc":
			lzWriter = lz4.NewWriter(w)
			lzWriter.Header = lz4.Header{CompressionLevel: 9}
			w = lzWriter
		}
		chroms := make([]string, 0, len(s.depth))
		for chrom := range s.depth {
			chroms = append(chroms, chrom)
		}
		sort.Strings(chroms)
		for _, chrom := range chroms {
			track := s.depth[chrom]
			var stepStart int
			var stepValue float64
			for ip := 0; ip < len(track); ip++ {
				if diff := math.Abs(track[ip] - stepValue); diff > bedGraphPrecision {
					if stepValue != 0. {
						if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%f\n", chrom, stepStart, ip, stepValue); err != nil {
							return err
						}
					}
					stepStart = ip
					stepValue = track[ip]
				}
			}
			if stepValue != 0. {
				if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%f\n", chrom, stepStart, len(track), stepValue); err != nil {
					return err
				}
			}
		}
		if lzWriter != nil {
			return lzWriter.Close()
		}
		return nil
	})
}
