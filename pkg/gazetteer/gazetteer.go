package gazetteer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// minColumns is the GeoNames prefix the loader needs: id through population
const minColumns = 15

// maxLineSize bounds one row; alternate name lists can be long
const maxLineSize = 1 << 20

// Entry is one GeoNames row
type Entry struct {
	ID             int64
	Name           string
	ASCIIName      string
	AlternateNames []string
	Latitude       float64
	Longitude      float64
	FeatureClass   string
	FeatureCode    string
	Country        string
	// AdminCodes are the raw admin1..admin4 codes
	AdminCodes [4]string
	// AdminNames are the codes resolved to the names of their admin rows
	AdminNames [4]string
	Population int64
}

// Place is a resolved administrative path for a place name
type Place struct {
	ID         int64
	Name       string
	Country    string
	ADM1       string
	ADM2       string
	ADM3       string
	ADM4       string
	Population int64
	Latitude   float64
	Longitude  float64
}

// Gazetteer is an in-memory place table keyed by geoname id
type Gazetteer struct {
	entries   map[int64]*Entry
	byName    map[string][]int64
	malformed int
}

// LoadFile reads a GeoNames dump such as allCountries.txt
func LoadFile(path string) (*Gazetteer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gazetteer file: %w", err)
	}
	defer file.Close()

	return Load(file)
}

// Load parses tab-separated GeoNames rows. Blank lines are ignored and
// malformed rows are skipped and counted. Admin codes are resolved to the
// names of the matching ADM1..ADM4 rows once all rows are read.
func Load(r io.Reader) (*Gazetteer, error) {
	g := &Gazetteer{
		entries: make(map[int64]*Entry),
		byName:  make(map[string][]int64),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, ok := parseRow(line)
		if !ok {
			g.malformed++
			continue
		}
		if _, dup := g.entries[entry.ID]; dup {
			g.malformed++
			continue
		}
		g.entries[entry.ID] = entry
		g.byName[entry.Name] = append(g.byName[entry.Name], entry.ID)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read gazetteer: %w", err)
	}

	g.resolveAdmins()
	return g, nil
}

func parseRow(line string) (*Entry, bool) {
	cols := strings.Split(line, "\t")
	if len(cols) < minColumns {
		return nil, false
	}

	id, err := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
	if err != nil {
		return nil, false
	}

	var lat, lon float64
	if cols[4] != "" {
		if lat, err = strconv.ParseFloat(cols[4], 64); err != nil {
			return nil, false
		}
	}
	if cols[5] != "" {
		if lon, err = strconv.ParseFloat(cols[5], 64); err != nil {
			return nil, false
		}
	}

	var pop int64
	if p := strings.TrimSpace(cols[14]); p != "" {
		if pop, err = strconv.ParseInt(p, 10, 64); err != nil {
			return nil, false
		}
	}

	var alternates []string
	if cols[3] != "" {
		alternates = strings.Split(cols[3], ",")
	}

	return &Entry{
		ID:             id,
		Name:           cols[1],
		ASCIIName:      cols[2],
		AlternateNames: alternates,
		Latitude:       lat,
		Longitude:      lon,
		FeatureClass:   cols[6],
		FeatureCode:    cols[7],
		Country:        cols[8],
		AdminCodes:     [4]string{cols[10], cols[11], cols[12], cols[13]},
		Population:     pop,
	}, true
}

// adminKey identifies an admin unit by level and code path, e.g. "ADM2|NL|07|0363"
func adminKey(level int, country string, codes [4]string) string {
	return "ADM" + strconv.Itoa(level) + "|" + country + "|" + strings.Join(codes[:level], "|")
}

// resolveAdmins fills AdminNames. An admin code resolves to the row whose
// feature code is that admin level and whose code path matches; when several
// rows qualify the lowest id wins.
func (g *Gazetteer) resolveAdmins() {
	units := make(map[string]*Entry)
	for _, e := range g.entries {
		level := adminLevel(e.FeatureCode)
		if level == 0 || e.AdminCodes[level-1] == "" {
			continue
		}
		key := adminKey(level, e.Country, e.AdminCodes)
		if cur, ok := units[key]; !ok || e.ID < cur.ID {
			units[key] = e
		}
	}

	for _, e := range g.entries {
		for level := 1; level <= 4; level++ {
			if e.AdminCodes[level-1] == "" {
				continue
			}
			if unit, ok := units[adminKey(level, e.Country, e.AdminCodes)]; ok {
				e.AdminNames[level-1] = unit.Name
			}
		}
	}
}

func adminLevel(featureCode string) int {
	switch featureCode {
	case "ADM1":
		return 1
	case "ADM2":
		return 2
	case "ADM3":
		return 3
	case "ADM4":
		return 4
	default:
		return 0
	}
}

// Len returns the number of loaded rows
func (g *Gazetteer) Len() int {
	return len(g.entries)
}

// Malformed returns how many rows were skipped while loading
func (g *Gazetteer) Malformed() int {
	return g.malformed
}

// Entry returns the row with the given geoname id
func (g *Gazetteer) Entry(id int64) (Entry, bool) {
	e, ok := g.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Candidates returns every place named exactly name, most populous first
// and lowest id first among equals.
func (g *Gazetteer) Candidates(name string) []Place {
	ids := g.byName[name]
	if len(ids) == 0 {
		return nil
	}

	matches := make([]*Entry, len(ids))
	for i, id := range ids {
		matches[i] = g.entries[id]
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Population != matches[j].Population {
			return matches[i].Population > matches[j].Population
		}
		return matches[i].ID < matches[j].ID
	})

	places := make([]Place, len(matches))
	for i, e := range matches {
		places[i] = e.place()
	}
	return places
}

// Resolve finds the place named exactly name (case-sensitive). Among
// several matches the most populous wins; equal populations go to the
// lowest geoname id. An unknown name reports false.
func (g *Gazetteer) Resolve(name string) (Place, bool) {
	candidates := g.Candidates(name)
	if len(candidates) == 0 {
		return Place{}, false
	}
	return candidates[0], true
}

func (e *Entry) place() Place {
	return Place{
		ID:         e.ID,
		Name:       e.Name,
		Country:    e.Country,
		ADM1:       e.AdminNames[0],
		ADM2:       e.AdminNames[1],
		ADM3:       e.AdminNames[2],
		ADM4:       e.AdminNames[3],
		Population: e.Population,
		Latitude:   e.Latitude,
		Longitude:  e.Longitude,
	}
}
