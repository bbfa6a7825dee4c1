//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package scheme

import (
	"strings"
	"testing"
)

const testBed = `MN908947.3	100	120	scheme_1_LEFT	1	+
MN908947.3	400	420	scheme_1_RIGHT	1	-
MN908947.3	350	370	scheme_2_LEFT	2	+
MN908947.3	700	720	scheme_2_RIGHT	2	-
MN908947.3	705	725	scheme_2_RIGHT_alt1	2	-
`

func TestRead(t *testing.T) {
	primers, err := Read(strings.NewReader(testBed))
	if err != nil {
		t.Fatal(err)
	}
	if len(primers) != 5 {
		t.Fatalf("got %d primers, want 5", len(primers))
	}
	p := primers[0]
	if p.Chrom != "MN908947.3" || p.Start != 100 || p.End != 120 || p.Pool != 1 || p.Strand != 1 {
		t.Errorf("unexpected first primer: %+v", p)
	}
	if p.AmpliconNumber != 1 || p.Side != SideLeft {
		t.Errorf("bad name parse: %+v", p)
	}
	alt := primers[4]
	if alt.AmpliconNumber != 2 || alt.Side != SideRight {
		t.Errorf("alt primer name parse failed: %+v", alt)
	}
}

func TestReadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		bed  string
	}{
		{"too few fields", "MN908947.3\t100\t120\tscheme_1_LEFT\t1\n"},
		{"bad start", "MN908947.3\tx\t120\tscheme_1_LEFT\t1\t+\n"},
		{"end before start", "MN908947.3\t120\t100\tscheme_1_LEFT\t1\t+\n"},
		{"bad pool", "MN908947.3\t100\t120\tscheme_1_LEFT\t0\t+\n"},
		{"bad strand", "MN908947.3\t100\t120\tscheme_1_LEFT\t1\t*\n"},
		{"bad name", "MN908947.3\t100\t120\tprimer1\t1\t+\n"},
		{"side strand mismatch", "MN908947.3\t100\t120\tscheme_1_RIGHT\t1\t+\n"},
		{"empty", "\n"},
	}
	for _, test := range tests {
		if _, err := Read(strings.NewReader(test.bed)); err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}
}

func TestReadSkipsComments(t *testing.T) {
	primers, err := Read(strings.NewReader("# header\n" + testBed))
	if err != nil {
		t.Fatal(err)
	}
	if len(primers) != 5 {
		t.Errorf("got %d primers, want 5", len(primers))
	}
}

func TestMergePrimers(t *testing.T) {
	primers, err := Read(strings.NewReader(testBed))
	if err != nil {
		t.Fatal(err)
	}
	merged := MergePrimers(primers)
	if len(merged) != 4 {
		t.Fatalf("got %d merged primers, want 4", len(merged))
	}
	// scheme_2_RIGHT and its alt collapse to [700,725).
	var right2 *Primer
	for i := range merged {
		if merged[i].AmpliconNumber == 2 && merged[i].Side == SideRight {
			right2 = &merged[i]
		}
	}
	if right2 == nil {
		t.Fatal("merged right primer of amplicon 2 not found")
	}
	if right2.Start != 700 || right2.End != 725 {
		t.Errorf("merged span [%d,%d), want [700,725)", right2.Start, right2.End)
	}
}

func TestPools(t *testing.T) {
	primers, err := Read(strings.NewReader(testBed))
	if err != nil {
		t.Fatal(err)
	}
	pools := Pools(primers)
	if pools.Size() != 2 {
		t.Errorf("got %d pools, want 2", pools.Size())
	}
	if !pools.Has(1) || !pools.Has(2) {
		t.Errorf("pool set missing entries: %v", pools.List())
	}
	if mp := MaxPool(pools); mp != 2 {
		t.Errorf("MaxPool = %d, want 2", mp)
	}
	labels := PoolLabels(pools)
	if len(labels) != 2 || labels[0] != "1" || labels[1] != "2" {
		t.Errorf("PoolLabels = %v, want [1 2]", labels)
	}
}
