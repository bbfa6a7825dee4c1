//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package scheme

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"gopkg.in/fatih/set.v0"
)

const (
	SideLeft  = "LEFT"
	SideRight = "RIGHT"
)

// Primer is one line of a primer scheme BED file: a named interval
// (0-based, half-open) assigned to a PCR pool and an amplicon.
type Primer struct {
	Chrom          string
	Start          int
	End            int
	Name           string
	Pool           int
	Strand         int8
	AmpliconNumber int
	Side           string
}

// RefLength pairs a reference sequence name with its length.
type RefLength struct {
	Name   string
	Length int
}

// Sorting functions: By Start
// Use it with: sort.Sort(scheme.ByStart(primers))
type ByStart []Primer

func (p ByStart) Len() int           { return len(p) }
func (p ByStart) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p ByStart) Less(i, j int) bool { return p[i].Start < p[j].Start }

// parseName extracts the amplicon number and side from a primer name
// following the {prefix}_{number}_{LEFT|RIGHT}[_{alt}] convention.
func parseName(name string) (number int, side string, err error) {
	fields := strings.Split(name, "_")
	if len(fields) < 3 {
		return 0, "", fmt.Errorf("Primer name %q has fewer than 3 _-separated fields", name)
	}
	// The side is the last LEFT/RIGHT field; anything after it is an
	// alternate-primer suffix.
	iside := -1
	for i := len(fields) - 1; i > 0; i-- {
		if fields[i] == SideLeft || fields[i] == SideRight {
			iside = i
			break
		}
	}
	if iside < 2 {
		return 0, "", fmt.Errorf("Primer name %q has no LEFT/RIGHT field", name)
	}
	side = fields[iside]
	number, err = strconv.Atoi(fields[iside-1])
	if err != nil {
		return 0, "", fmt.Errorf("Primer name %q has non-numeric amplicon number %q", name, fields[iside-1])
	}
	return number, side, nil
}

// Open parses a primer scheme BED file and returns its primers in file
// order. Files with a .gz suffix are decompressed transparently.
func Open(path string) (primers []Primer, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return Read(r)
}

// Read parses primers from a BED-like stream: chrom, start, end, name,
// pool, strand, with an optional 7th sequence column.
func Read(r io.Reader) (primers []Primer, err error) {
	scanner := bufio.NewScanner(r)
	iline := 0
	for scanner.Scan() {
		iline++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 6 {
			return primers, fmt.Errorf("Line %d: expected at least 6 tab-separated fields, found %d", iline, len(fields))
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return primers, fmt.Errorf("Line %d: bad start %q", iline, fields[1])
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return primers, fmt.Errorf("Line %d: bad end %q", iline, fields[2])
		}
		if end <= start {
			return primers, fmt.Errorf("Line %d: end %d <= start %d", iline, end, start)
		}
		pool, err := strconv.Atoi(fields[4])
		if err != nil || pool < 1 {
			return primers, fmt.Errorf("Line %d: bad pool %q", iline, fields[4])
		}
		var strand int8
		switch fields[5] {
		case "+":
			strand = 1
		case "-":
			strand = -1
		default:
			return primers, fmt.Errorf("Line %d: bad strand %q", iline, fields[5])
		}
		number, side, err := parseName(fields[3])
		if err != nil {
			return primers, fmt.Errorf("Line %d: %v", iline, err)
		}
		if (side == SideLeft) != (strand == 1) {
			return primers, fmt.Errorf("Line %d: primer %q side %s does not match strand %s", iline, fields[3], side, fields[5])
		}
		primers = append(primers, Primer{
			Chrom:          fields[0],
			Start:          start,
			End:            end,
			Name:           fields[3],
			Pool:           pool,
			Strand:         strand,
			AmpliconNumber: number,
			Side:           side,
		})
	}
	if err = scanner.Err(); err != nil {
		return primers, err
	}
	if len(primers) == 0 {
		return primers, fmt.Errorf("No primers found in scheme")
	}
	return primers, nil
}

// MergePrimers collapses alternate primers sharing an amplicon number and
// side into a single primer spanning min(start) to max(end).
func MergePrimers(primers []Primer) []Primer {
	type key struct {
		chrom  string
		number int
		side   string
	}
	merged := make(map[key]Primer)
	var order []key
	for _, p := range primers {
		k := key{p.Chrom, p.AmpliconNumber, p.Side}
		if m, ok := merged[k]; ok {
			if p.Start < m.Start {
				m.Start = p.Start
				m.Name = p.Name
			}
			if p.End > m.End {
				m.End = p.End
			}
			merged[k] = m
		} else {
			merged[k] = p
			order = append(order, k)
		}
	}
	out := make([]Primer, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out
}

// Pools returns the set of pool identifiers used by the primers.
func Pools(primers []Primer) set.Interface {
	pools := set.New(set.NonThreadSafe)
	for _, p := range primers {
		pools.Add(p.Pool)
	}
	return pools
}

// MaxPool returns the highest pool identifier in the set.
func MaxPool(pools set.Interface) int {
	var mp int
	for _, v := range pools.List() {
		if p, ok := v.(int); ok && p > mp {
			mp = p
		}
	}
	return mp
}

// PoolLabels returns the pool identifiers as sorted string labels.
func PoolLabels(pools set.Interface) []string {
	ids := make([]int, 0, pools.Size())
	for _, v := range pools.List() {
		if p, ok := v.(int); ok {
			ids = append(ids, p)
		}
	}
	sort.Ints(ids)
	labels := make([]string, len(ids))
	for i, p := range ids {
		labels[i] = strconv.Itoa(p)
	}
	return labels
}
