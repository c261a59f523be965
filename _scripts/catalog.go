// Catalog search script for scriptterm. It runs inside the embedded
// interpreter: load it with `--script _scripts/catalog.go`, then
//
//	run -s "star" --show-offers -fm "flatrate|free"
package catalog

import (
	"errors"
	"flag"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"terminal"
)

type Offer struct {
	Country      string
	Service      string
	Monetization string // flatrate, buy, rent, free, ads
	Presentation string // SD, HD, 4K
	Price        string
	Currency     string
	Audio        []string
	Subtitles    []string
}

func (o Offer) String() string {
	s := fmt.Sprintf("%s - %s (%s)", o.Country, o.Service, o.Monetization)
	if o.Price != "" {
		s += fmt.Sprintf(" - %s %s", o.Price, o.Currency)
	}
	s += fmt.Sprintf(" [%s]", o.Presentation)
	if len(o.Audio) > 0 {
		s += "\n  Audio: " + strings.Join(o.Audio, ", ")
	}
	if len(o.Subtitles) > 0 {
		s += "\n  Subtitles: " + strings.Join(o.Subtitles, ", ")
	}
	return s
}

type Title struct {
	Name     string
	Year     int
	Kind     string // MOVIE or SHOW
	IMDB     string
	TMDB     string
	Path     string
	Genres   []string
	Catalogs []string // countries whose catalog lists the title
	Offers   []Offer
}

// byCountry groups offers by country code.
func byCountry(offers []Offer) map[string][]Offer {
	out := make(map[string][]Offer)
	for _, o := range offers {
		out[o.Country] = append(out[o.Country], o)
	}
	return out
}

var titles = []Title{
	{
		Name: "Star Wars", Year: 1977, Kind: "MOVIE", IMDB: "tt0076759", TMDB: "11",
		Path: "/us/movie/star-wars", Genres: []string{"act", "scf"},
		Catalogs: []string{"US", "GB", "DE", "CA"},
		Offers: []Offer{
			{Country: "US", Service: "Disney Plus", Monetization: "flatrate", Presentation: "4K", Audio: []string{"en", "es"}, Subtitles: []string{"en", "es", "fr"}},
			{Country: "US", Service: "Apple TV", Monetization: "buy", Presentation: "4K", Price: "$19.99", Currency: "USD", Audio: []string{"en"}, Subtitles: []string{"en"}},
			{Country: "GB", Service: "Disney Plus", Monetization: "flatrate", Presentation: "HD", Audio: []string{"en"}, Subtitles: []string{"en"}},
			{Country: "DE", Service: "Disney Plus", Monetization: "flatrate", Presentation: "4K", Audio: []string{"de", "en"}, Subtitles: []string{"de"}},
			{Country: "CA", Service: "Amazon Video", Monetization: "rent", Presentation: "HD", Price: "$4.99", Currency: "CAD", Audio: []string{"en", "fr"}},
		},
	},
	{
		Name: "Star Trek: The Next Generation", Year: 1987, Kind: "SHOW", IMDB: "tt0092455", TMDB: "655",
		Path: "/us/tv-show/star-trek-the-next-generation", Genres: []string{"scf", "drm"},
		Catalogs: []string{"US", "GB", "CZ"},
		Offers: []Offer{
			{Country: "US", Service: "Paramount Plus", Monetization: "flatrate", Presentation: "HD", Audio: []string{"en"}, Subtitles: []string{"en"}},
			{Country: "US", Service: "Pluto TV", Monetization: "ads", Presentation: "SD", Audio: []string{"en"}},
			{Country: "GB", Service: "Netflix", Monetization: "flatrate", Presentation: "HD", Audio: []string{"en"}, Subtitles: []string{"en"}},
			{Country: "CZ", Service: "SkyShowtime", Monetization: "flatrate", Presentation: "HD", Audio: []string{"en", "cs"}, Subtitles: []string{"cs", "sk"}},
		},
	},
	{
		Name: "Stargate", Year: 1994, Kind: "MOVIE", IMDB: "tt0111282", TMDB: "2164",
		Path: "/us/movie/stargate", Genres: []string{"scf", "act"},
		Catalogs: []string{"US", "SK"},
		Offers: []Offer{
			{Country: "US", Service: "Tubi TV", Monetization: "free", Presentation: "HD", Audio: []string{"en"}, Subtitles: []string{"en"}},
			{Country: "SK", Service: "Netflix", Monetization: "flatrate", Presentation: "HD", Audio: []string{"en", "sk"}, Subtitles: []string{"sk", "cs"}},
		},
	},
	{
		Name: "Dune", Year: 2021, Kind: "MOVIE", IMDB: "tt1160419", TMDB: "438631",
		Path: "/us/movie/dune-2021", Genres: []string{"scf", "drm"},
		Catalogs: []string{"US", "GB", "FR"},
		Offers: []Offer{
			{Country: "US", Service: "Max", Monetization: "flatrate", Presentation: "4K", Audio: []string{"en", "es"}, Subtitles: []string{"en", "es"}},
			{Country: "GB", Service: "Sky Store", Monetization: "rent", Presentation: "HD", Price: "£3.49", Currency: "GBP", Audio: []string{"en"}},
			{Country: "FR", Service: "Canal+", Monetization: "flatrate", Presentation: "HD", Audio: []string{"fr", "en"}, Subtitles: []string{"fr"}},
		},
	},
}

// Filter keeps offers matching every set pattern, case-insensitively.
type Filter struct {
	Country      *regexp.Regexp
	Service      *regexp.Regexp
	Audio        *regexp.Regexp
	Subtitle     *regexp.Regexp
	Monetization *regexp.Regexp
	Presentation *regexp.Regexp
}

func (f Filter) Active() bool {
	return f.Country != nil || f.Service != nil || f.Audio != nil ||
		f.Subtitle != nil || f.Monetization != nil || f.Presentation != nil
}

func matchAny(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

func (f Filter) Keep(o Offer) bool {
	switch {
	case f.Country != nil && !f.Country.MatchString(o.Country):
		return false
	case f.Service != nil && !f.Service.MatchString(o.Service):
		return false
	case f.Monetization != nil && !f.Monetization.MatchString(o.Monetization):
		return false
	case f.Presentation != nil && !f.Presentation.MatchString(o.Presentation):
		return false
	case f.Audio != nil && !matchAny(f.Audio, o.Audio):
		return false
	case f.Subtitle != nil && !matchAny(f.Subtitle, o.Subtitles):
		return false
	}
	return true
}

func (f Filter) Apply(offers []Offer) []Offer {
	var kept []Offer
	for _, o := range offers {
		if f.Keep(o) {
			kept = append(kept, o)
		}
	}
	return kept
}

func newFilter(country, service, audio, subtitle, monetization, presentation string) (Filter, error) {
	var f Filter
	var err error
	if f.Country, err = compile("country", country); err != nil {
		return f, err
	}
	if f.Service, err = compile("service", service); err != nil {
		return f, err
	}
	if f.Audio, err = compile("audio", audio); err != nil {
		return f, err
	}
	if f.Subtitle, err = compile("subtitle", subtitle); err != nil {
		return f, err
	}
	if f.Monetization, err = compile("monetization", monetization); err != nil {
		return f, err
	}
	f.Presentation, err = compile("presentation", presentation)
	return f, err
}

func compile(name, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern %q: %v", name, pattern, err)
	}
	return re, nil
}

func search(query, country string, limit int, filter Filter) []Title {
	var found []Title
	q := strings.ToLower(query)
	for _, t := range titles {
		if len(found) >= limit {
			break
		}
		if !strings.Contains(strings.ToLower(t.Name), q) || !listed(t, country) {
			continue
		}
		if filter.Active() {
			t.Offers = filter.Apply(t.Offers)
			if len(t.Offers) == 0 {
				continue
			}
		}
		found = append(found, t)
	}
	return found
}

func listed(t Title, country string) bool {
	for _, c := range t.Catalogs {
		if strings.EqualFold(c, country) {
			return true
		}
	}
	return false
}

func printTitle(i int, t Title, filtered bool) {
	fmt.Printf("%d. %s (%d) - %s\n", i, t.Name, t.Year, t.Kind)
	if t.IMDB != "" {
		fmt.Printf("   IMDB: https://www.imdb.com/title/%s\n", t.IMDB)
	}
	if t.TMDB != "" {
		kind := strings.Replace(strings.ToLower(t.Kind), "show", "tv", 1)
		fmt.Printf("   TMDB: https://www.themoviedb.org/%s/%s\n", kind, t.TMDB)
	}
	if t.Path != "" {
		fmt.Printf("   JustWatch: https://justwatch.com%s\n", t.Path)
	}
	if len(t.Genres) > 0 {
		fmt.Printf("   Genres: %s\n", strings.Join(t.Genres, ", "))
	}
	if filtered && len(t.Offers) > 0 {
		groups := byCountry(t.Offers)
		fmt.Printf("   Offers available: %d (across %d countries)\n", len(t.Offers), len(groups))
	}
	fmt.Println()
}

func printOffers(t Title, offers []Offer) {
	line := strings.Repeat("=", 80)
	fmt.Printf("\n%s\nStreaming availability for: %s (%d)\n%s\n\n", line, t.Name, t.Year, line)
	if len(offers) == 0 {
		fmt.Println("No offers found.")
		return
	}
	groups := byCountry(offers)
	countries := make([]string, 0, len(groups))
	for c := range groups {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	fmt.Printf("Found %d offers across %d countries:\n\n", len(offers), len(groups))
	for _, c := range countries {
		fmt.Printf("\n%s (%d offers):\n", c, len(groups[c]))
		fmt.Println(strings.Repeat("-", 80))
		for _, o := range groups[c] {
			fmt.Printf("  %s\n\n", o.String())
		}
	}
}

// selectTitle asks which result to show. It reports false when cancelled.
func selectTitle(found []Title) (Title, bool, error) {
	if len(found) == 1 {
		return found[0], true, nil
	}
	answer, err := terminal.Input(fmt.Sprintf("Select a title (1-%d) or 0 to cancel: ", len(found)))
	if errors.Is(err, terminal.ErrInterrupted) {
		fmt.Println("\nCancelled.")
		return Title{}, false, nil
	}
	if err != nil {
		return Title{}, false, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 1 || n > len(found) {
		fmt.Println("Cancelled.")
		return Title{}, false, nil
	}
	return found[n-1], true, nil
}

type output struct{}

func (output) Write(p []byte) (int, error) {
	terminal.Print(string(p))
	return len(p), nil
}

const epilog = `
Filter patterns (regex):
  Country:       -fc "US|GB|CA"          # Show offers only from US, GB, or CA
  Service:       -fs "Netflix|Disney.*"  # Netflix or Disney+
  Audio:         -fa "en|es"             # English or Spanish audio
  Subtitles:     -ft "en"                # English subtitles available
  Monetization:  -fm "flatrate|free"     # Subscription or free
  Quality:       -fp "HD|4K"             # HD or 4K only
`

func Main(args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	fs.SetOutput(output{})
	query := fs.String("s", "", "Search query for movies/series")
	country := fs.String("c", "US", "Country catalog to search in")
	limit := fs.Int("n", 10, "Maximum number of search results")
	showOffers := fs.Bool("show-offers", false, "Show streaming offers for a selected result")
	fc := fs.String("fc", "", "Filter offers by country code (regex)")
	fsvc := fs.String("fs", "", "Filter offers by service name (regex)")
	fa := fs.String("fa", "", "Filter offers by audio language (regex)")
	ft := fs.String("ft", "", "Filter offers by subtitle language (regex)")
	fm := fs.String("fm", "", "Filter offers by monetization type (regex)")
	fp := fs.String("fp", "", "Filter offers by quality/presentation (regex)")
	fs.Usage = func() {
		fmt.Println("Usage: run [options]")
		fs.PrintDefaults()
		fmt.Print(epilog)
	}

	if len(args) == 0 {
		fs.Usage()
		return nil
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *query == "" {
		fmt.Println("Error: -s is required")
		fmt.Println("Run with -h for help")
		terminal.Exit(2)
	}

	filter, err := newFilter(*fc, *fsvc, *fa, *ft, *fm, *fp)
	if err != nil {
		return err
	}

	fmt.Printf("Searching for '%s' in %s...\n", *query, strings.ToUpper(*country))
	found := search(*query, *country, *limit, filter)
	if len(found) == 0 {
		fmt.Println("No titles found.")
		return nil
	}

	fmt.Printf("\nFound %d results:\n\n", len(found))
	for i, t := range found {
		printTitle(i+1, t, filter.Active())
	}

	if !*showOffers {
		return nil
	}
	selected, ok, err := selectTitle(found)
	if err != nil || !ok {
		return err
	}
	if filter.Active() {
		fmt.Println("Applying filters...")
	}
	printOffers(selected, selected.Offers)
	return nil
}
