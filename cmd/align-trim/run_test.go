//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testScheme = `MN908947.3	100	120	scheme_1_LEFT	1	+
MN908947.3	400	420	scheme_1_RIGHT	1	-
MN908947.3	350	370	scheme_2_LEFT	2	+
MN908947.3	700	720	scheme_2_RIGHT	2	-
`

// POS is 1-based in SAM text: r1 spans [90,430) and straddles both
// primers of amplicon 1, r2 maps too poorly to keep, r3 sits entirely
// inside the left primer region.
const testSam = `@HD	VN:1.6	SO:coordinate
@SQ	SN:MN908947.3	LN:1000
r1	0	MN908947.3	91	60	340M	*	0	0	*	*
r2	0	MN908947.3	121	10	280M	*	0	0	*	*
r3	0	MN908947.3	91	60	20M	*	0	0	*	*
`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	pathBed := filepath.Join(dir, "scheme.bed")
	pathSam := filepath.Join(dir, "in.sam")
	if err := os.WriteFile(pathBed, []byte(testScheme), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pathSam, []byte(testSam), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := Options{
		PathBed:            pathBed,
		PathBam:            pathSam,
		PathOut:            filepath.Join(dir, "out.sam"),
		PathReport:         filepath.Join(dir, "report.tsv"),
		PathAmpDepth:       filepath.Join(dir, "amp_depths.tsv"),
		DepthProfileFormat: "bedgraph",
		MinMapQ:            20,
		MatchThreshold:     35,
		TrimPrimers:        true,
		ReadGroups:         true,
	}
	counts, err := Run(opts)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Total != 3 || counts.Written != 1 || counts.LowMapQ != 1 || counts.ZeroLength != 1 {
		t.Errorf("counters = %+v", counts)
	}

	out, err := os.ReadFile(opts.PathOut)
	if err != nil {
		t.Fatal(err)
	}
	var headerHasRG bool
	var records []string
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if strings.HasPrefix(line, "@") {
			if line == "@RG\tID:1" {
				headerHasRG = true
			}
			continue
		}
		records = append(records, line)
	}
	if !headerHasRG {
		t.Error("output header has no @RG line for pool 1")
	}
	if len(records) != 1 {
		t.Fatalf("got %d output records, want 1: %q", len(records), records)
	}
	fields := strings.Split(records[0], "\t")
	if fields[0] != "r1" || fields[3] != "121" || fields[5] != "30S280M30S" {
		t.Errorf("unexpected trimmed record: %q", records[0])
	}
	if !strings.Contains(records[0], "RG:Z:1") {
		t.Errorf("record has no RG tag: %q", records[0])
	}

	report, err := os.ReadFile(opts.PathReport)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"primer\thits", "scheme_1_LEFT\t1", "scheme_1_RIGHT\t1"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("primer-hit report missing %q: %q", want, report)
		}
	}
	ampDepths, err := os.ReadFile(opts.PathAmpDepth)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(ampDepths), "chrom\tamplicon\tmean_depth\n") {
		t.Errorf("bad amplicon-depth report header: %q", ampDepths)
	}
}
