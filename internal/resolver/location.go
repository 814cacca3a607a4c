package resolver

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/source"
)

// nationalReplacer folds the accented characters that appear in location
// names across the supported countries into their ASCII equivalents. Sources
// expect plain ASCII in URI segments regardless of display spelling.
var nationalReplacer = strings.NewReplacer(
	"ą", "a", "ć", "c", "ę", "e", "ł", "l", "ń", "n", "ó", "o", "ś", "s", "ź", "z", "ż", "z",
	"Ą", "A", "Ć", "C", "Ę", "E", "Ł", "L", "Ń", "N", "Ó", "O", "Ś", "S", "Ź", "Z", "Ż", "Z",
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
	"á", "a", "à", "a", "â", "a", "é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "î", "i", "ï", "i", "ô", "o", "ú", "u", "ù", "u", "û", "u", "ç", "c",
	"É", "E", "È", "E", "Ê", "E", "À", "A", "Ç", "C",
)

// NormalizeNational folds national characters before a location is placed
// into a URI.
func NormalizeNational(s string) string {
	return nationalReplacer.Replace(s)
}

// placeLocation puts the location (and optional distance) into the URL,
// either as query parameters or as a path segment with optional prefix and
// trailing-slash normalization. National characters are folded first.
func placeLocation(u *url.URL, pairs []string, cfg *source.Config, params harvest.SearchParameters) []string {
	rule := cfg.SearchURI.Location
	location := NormalizeNational(params.Location)
	if rule.SpaceChar != "" {
		location = strings.ReplaceAll(location, " ", rule.SpaceChar)
	}

	switch rule.Placement {
	case source.PlacementSegment:
		segment := location
		if rule.SegmentPrefix != "" {
			segment = rule.SegmentPrefix + segment
		}
		appendSegment(u, segment, rule.TrailingSlash)
	default:
		name := rule.Param
		if name == "" {
			name = "l"
		}
		pairs = append(pairs, name+"="+url.QueryEscape(location))
	}

	if params.DistanceKm > 0 && rule.Distance.Param != "" {
		distance := strconv.Itoa(params.DistanceKm)
		switch rule.Distance.Placement {
		case source.PlacementSegment:
			appendSegment(u, rule.Distance.Param+distance, false)
		default:
			pairs = append(pairs, rule.Distance.Param+"="+distance)
		}
	}
	return pairs
}
