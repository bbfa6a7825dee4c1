//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

var version = "DEV"

func main() {
	// Arguments: General
	var verbose, printVersion bool
	flag.BoolVar(&verbose, "verbose", false, "Verbose")
	flag.BoolVar(&printVersion, "version", false, "Print version and quit")
	// Arguments: Input
	var pathBed, pathBam string
	flag.StringVar(&pathBed, "bed", "", "Path to primer scheme BED file (.gz supported)")
	flag.StringVar(&pathBam, "bam", "", "Path to coordinate-sorted SAM/BAM file")
	// Arguments: Matching & trimming
	var minMapQ, matchThreshold, fullLengthTolerance int
	var noTrimPrimers, requireFullLength bool
	flag.IntVar(&minMapQ, "min_mapq", 20, "Minimum mapping quality to keep an aligned read")
	flag.IntVar(&matchThreshold, "primer_match_threshold", 35, "Fuzzy match window (bases) for primer lookup")
	flag.IntVar(&fullLengthTolerance, "full_length_tolerance", 1, "Slack (bases) allowed at each primer boundary with -require_full_length")
	flag.BoolVar(&noTrimPrimers, "no_trim_primers", false, "Do not trim primer sequence from reads")
	flag.BoolVar(&requireFullLength, "require_full_length", false, "Only keep reads spanning both primers of their amplicon")
	// Arguments: Pairing & normalization
	var normalise int
	var paired, allowIncorrectPairs bool
	flag.IntVar(&normalise, "normalise", 0, "Subsample to N reads per amplicon (0 to disable)")
	flag.BoolVar(&paired, "paired", false, "Pair-end sequencing")
	flag.BoolVar(&allowIncorrectPairs, "allow_incorrect_pairs", false, "Keep pairs whose mates resolve to different amplicons")
	// Arguments: Output
	var pathOut, pathReport, pathAmpDepth, pathDepthProfile, depthProfileFormat string
	var noReadGroups bool
	flag.StringVar(&pathOut, "output", "", "Path to output SAM/BAM (stdout SAM if empty)")
	flag.StringVar(&pathReport, "report", "", "Path to primer-hit report (TSV)")
	flag.StringVar(&pathAmpDepth, "amp_depth_report", "", "Path to amplicon mean-depth report (TSV)")
	flag.StringVar(&pathDepthProfile, "depth_profile", "", "Path to per-base depth profile output")
	flag.StringVar(&depthProfileFormat, "depth_profile_format", "bedgraph", "Depth profile format: 'bedgraph', 'bedgraph+lz4' or 'bedgraph+lz4hc'")
	flag.BoolVar(&noReadGroups, "no_read_groups", false, "Do not add read groups to header or reads")
	// Arguments: Parse
	flag.Parse()

	// Version
	if printVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Time start
	var timeStart time.Time
	if verbose {
		timeStart = time.Now()
	}

	// Check arguments
	if len(pathBed) == 0 {
		log.Fatal("No primer scheme input")
	} else if _, err := os.Stat(pathBed); os.IsNotExist(err) {
		log.Fatalln(pathBed, "not found")
	}
	if len(pathBam) == 0 {
		log.Fatal("No SAM/BAM input")
	} else if _, err := os.Stat(pathBam); os.IsNotExist(err) {
		log.Fatalln(pathBam, "not found")
	}
	if minMapQ < 0 || minMapQ > 255 {
		log.Fatalln("min_mapq out of range:", minMapQ)
	}
	if matchThreshold < 0 {
		log.Fatalln("primer_match_threshold must be >= 0:", matchThreshold)
	}

	opts := Options{
		PathBed:             pathBed,
		PathBam:             pathBam,
		PathOut:             pathOut,
		PathReport:          pathReport,
		PathAmpDepth:        pathAmpDepth,
		PathDepthProfile:    pathDepthProfile,
		DepthProfileFormat:  depthProfileFormat,
		MinMapQ:             byte(minMapQ),
		MatchThreshold:      matchThreshold,
		FullLengthTolerance: fullLengthTolerance,
		Normalise:           normalise,
		TrimPrimers:         !noTrimPrimers,
		RequireFullLength:   requireFullLength,
		Paired:              paired,
		AllowIncorrectPairs: allowIncorrectPairs,
		ReadGroups:          !noReadGroups,
		Verbose:             verbose,
		TimeStart:           timeStart,
	}
	counts, err := Run(opts)
	if err != nil {
		log.Fatal(err)
	}

	// Verbose
	if verbose {
		timeEnd := time.Now()
		fmt.Printf("%.1fmin - Done: %d align., %d written, %d skipped, %d low mapq, %d depth-capped\n",
			timeEnd.Sub(timeStart).Minutes(), counts.Total, counts.Written, counts.Skipped, counts.LowMapQ, counts.DepthCapped)
	}
}
