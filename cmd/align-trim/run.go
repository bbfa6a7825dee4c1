//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"golang.org/x/sync/errgroup"

	"github.com/artic-network/align-trim/lib/depth"
	"github.com/artic-network/align-trim/lib/lookup"
	"github.com/artic-network/align-trim/lib/report"
	"github.com/artic-network/align-trim/lib/scheme"
	"github.com/artic-network/align-trim/lib/trim"
)

// Options collects the run configuration parsed in main.
type Options struct {
	PathBed             string
	PathBam             string
	PathOut             string
	PathReport          string
	PathAmpDepth        string
	PathDepthProfile    string
	DepthProfileFormat  string
	MinMapQ             byte
	MatchThreshold      int
	FullLengthTolerance int
	Normalise           int
	TrimPrimers         bool
	RequireFullLength   bool
	Paired              bool
	AllowIncorrectPairs bool
	ReadGroups          bool
	Verbose             bool
	TimeStart           time.Time
}

// recordWriter is satisfied by both sam.Writer and bam.Writer.
type recordWriter interface {
	Write(r *sam.Record) error
}

func openAlignments(path string) (f *os.File, rr sam.RecordReader, err error) {
	f, err = os.Open(path)
	if err != nil {
		return f, rr, err
	}
	if strings.HasSuffix(path, ".bam") {
		rr, err = bam.NewReader(f, 1)
	} else {
		rr, err = sam.NewReader(f)
	}
	return f, rr, err
}

type headered interface {
	Header() *sam.Header
}

// addReadGroups rebuilds the header from its text form with one @RG line
// per pool label plus the unmatched group.
func addReadGroups(h *sam.Header, labels []string) (*sam.Header, error) {
	text, err := h.MarshalText()
	if err != nil {
		return nil, err
	}
	for _, label := range labels {
		text = append(text, []byte("@RG\tID:"+label+"\n")...)
	}
	text = append(text, []byte("@RG\tID:"+trim.GroupUnmatched+"\n")...)
	return sam.NewHeader(text, nil)
}

// Run executes one trimming pass: scheme and lookup construction, the
// single-threaded record loop, and report emission.
func Run(opts Options) (counts trim.Counters, err error) {
	// Open scheme
	primers, err := scheme.Open(opts.PathBed)
	if err != nil {
		return counts, err
	}
	pools := scheme.Pools(primers)
	merged := scheme.MergePrimers(primers)
	amplicons, err := scheme.CreateAmplicons(merged)
	if err != nil {
		return counts, err
	}
	if err = scheme.ValidatePoolOverlaps(amplicons); err != nil {
		return counts, err
	}
	if opts.Verbose {
		timeNow := time.Now()
		fmt.Printf("%.1fmin - Scheme: %d primers, %d amplicons, %d pools\n",
			timeNow.Sub(opts.TimeStart).Minutes(), len(primers), len(amplicons), pools.Size())
	}

	// Open alignments
	f, rr, err := openAlignments(opts.PathBam)
	if err != nil {
		return counts, err
	}
	defer f.Close()
	header := rr.(headered).Header()

	// Reference lengths from the header
	refLengths := make([]scheme.RefLength, 0, len(header.Refs()))
	for _, ref := range header.Refs() {
		refLengths = append(refLengths, scheme.RefLength{Name: ref.Name(), Length: ref.Len()})
	}

	// Build primer lookup
	table, err := lookup.Build(refLengths, amplicons, pools, opts.MatchThreshold)
	if err != nil {
		return counts, err
	}

	// Output header, with read groups per pool
	outHeader := header.Clone()
	if opts.ReadGroups {
		outHeader, err = addReadGroups(header, scheme.PoolLabels(pools))
		if err != nil {
			return counts, err
		}
	}

	// Open output
	var out io.Writer = os.Stdout
	if opts.PathOut != "" {
		fo, err := os.Create(opts.PathOut)
		if err != nil {
			return counts, err
		}
		defer fo.Close()
		out = fo
	}
	var w recordWriter
	var bw *bam.Writer
	if strings.HasSuffix(opts.PathOut, ".bam") {
		bw, err = bam.NewWriter(out, outHeader, 1)
		if err != nil {
			return counts, err
		}
		w = bw
	} else {
		w, err = sam.NewWriter(out, outHeader, sam.FlagDecimal)
		if err != nil {
			return counts, err
		}
	}

	// Init accumulators and engine
	stats := report.NewStats(refLengths, amplicons)
	norm := depth.New(opts.Normalise)
	engine := trim.NewEngine(table, trim.Policy{
		TrimPrimers:         opts.TrimPrimers,
		RequireFullLength:   opts.RequireFullLength,
		FullLengthTolerance: opts.FullLengthTolerance,
		MinMapQ:             opts.MinMapQ,
		AllowIncorrectPairs: opts.AllowIncorrectPairs,
		Paired:              opts.Paired,
		SetReadGroups:       opts.ReadGroups,
	}, norm, stats)

	// Loop over reads
	timeLog := time.Now()
	for {
		rec, err := rr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return engine.Counts, err
		}
		for _, o := range engine.Process(rec) {
			if err = w.Write(o); err != nil {
				return engine.Counts, err
			}
		}
		if opts.Verbose {
			timeNow := time.Now()
			if timeNow.Sub(timeLog).Minutes() > 1. {
				fmt.Printf("%.1fmin - %d align.\n", timeNow.Sub(opts.TimeStart).Minutes(), engine.Counts.Total)
				timeLog = timeNow
			}
		}
	}
	// Flush unpaired leftovers
	for _, o := range engine.Flush() {
		if err = w.Write(o); err != nil {
			return engine.Counts, err
		}
	}
	if bw != nil {
		if err = bw.Close(); err != nil {
			return engine.Counts, err
		}
	}

	// Output: Reports
	var g errgroup.Group
	if opts.PathReport != "" {
		g.Go(func() error { return stats.WritePrimerHits(opts.PathReport) })
	}
	if opts.PathAmpDepth != "" {
		g.Go(func() error { return stats.WriteAmpliconDepths(opts.PathAmpDepth) })
	}
	if opts.PathDepthProfile != "" {
		g.Go(func() error { return stats.WriteDepthProfile(opts.PathDepthProfile, opts.DepthProfileFormat) })
	}
	if err = g.Wait(); err != nil {
		return engine.Counts, err
	}

	return engine.Counts, nil
}
