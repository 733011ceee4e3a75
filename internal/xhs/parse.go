package xhs

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
	"github.com/VamLeovr/rednote-mind-skills/internal/websearch"
)

// #region selectors

var (
	contentSelectors = []string{
		`[class*="note-content"]`,
		`[class*="desc"]`,
		`[class*="detail-desc"]`,
		`div.content`,
		`div.note-text`,
	}
	likeSelectors = []string{
		`.like-wrapper .count`,
		`[class*="like"] .count`,
		`[class*="like-count"]`,
	}
	collectSelectors = []string{
		`.collect-wrapper .count`,
		`[class*="collect"] .count`,
		`[class*="collect-count"]`,
	}
	commentSelectors = []string{
		`.chat-wrapper .count`,
		`[class*="chat"] .count`,
		`[class*="comment-count"]`,
	}
	imageSelectors = []string{
		`img.note-slider-img`,
		`img[src*="sns-webpic"]`,
		`img[src*="ci.xiaohongshu"]`,
		`img[src*="sns-img"]`,
		`img[src*="xhscdn"]`,
	}

	imageHosts     = []string{"xhscdn", "xiaohongshu", "sns-webpic", "sns-img", "ci.xiaohongshu"}
	imageExclude   = []string{"avatar", "icon", "logo", "user-head"}
	notFoundMarker = []string{"笔记不见了", "无法访问", "不存在", "已删除"}

	noteIDPattern = regexp.MustCompile(`/(?:explore|search_result|discovery/item)/([a-zA-Z0-9]+)`)
	countPattern  = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
)

// #endregion selectors

// #region note

// ParseNote extracts a note from a rendered note page. Images are not
// included; see ParseImageURLs.
func ParseNote(html, pageURL string, minContentChars int) (corpus.Note, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return corpus.Note{}, fmt.Errorf("xhs: parse note html: %w", err)
	}

	note := corpus.Note{
		URL:    pageURL,
		NoteID: NoteID(pageURL),
		Title:  noteTitle(doc),
	}

	// A long enough candidate ends the search; otherwise the last
	// non-empty one is kept.
	for _, sel := range contentSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		note.Content = text
		if utf8.RuneCountInString(text) > minContentChars {
			break
		}
	}

	note.Author.Name = firstText(doc, `[class*="author-name"]`, `[class*="user-name"]`)
	if note.Author.Name == "" {
		note.Author.Name = unknownAuthor
	}
	if href, ok := doc.Find(`a[href*="/user/profile/"]`).First().Attr("href"); ok {
		note.Author.URL = absoluteURL(pageURL, href)
	}

	seen := map[string]bool{}
	doc.Find(`[class*="tag"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, "#") {
			return
		}
		tag := strings.TrimSpace(strings.TrimPrefix(text, "#"))
		if tag != "" && !seen[tag] {
			seen[tag] = true
			note.Tags = append(note.Tags, tag)
		}
	})

	note.Likes = firstCount(doc, likeSelectors...)
	note.Collects = firstCount(doc, collectSelectors...)
	note.Comments = firstCount(doc, commentSelectors...)

	raw := firstText(doc, `[class*="time"]`)
	if raw == "" {
		raw, _ = doc.Find(`meta[property="article:published_time"]`).Attr("content")
	}
	note.PublishTimeRaw = strings.TrimSpace(raw)
	note.PublishTime = ParsePublishTime(note.PublishTimeRaw, time.Now())

	if note.Content == "" && note.Title == "" {
		if IsNotFound(doc.Find("body").Text()) {
			return note, ErrNotFound
		}
		return note, ErrNoContent
	}
	return note, nil
}

func noteTitle(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "- 小红书"))
		if v != "" {
			return v
		}
	}
	return firstText(doc, `[class*="title"]`)
}

// IsNotFound reports whether page text carries a deleted or private marker.
func IsNotFound(bodyText string) bool {
	for _, m := range notFoundMarker {
		if strings.Contains(bodyText, m) {
			return true
		}
	}
	return false
}

// NoteID extracts the note id from a note or search URL.
func NoteID(u string) string {
	m := noteIDPattern.FindStringSubmatch(u)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// #endregion note

// #region counts

// ParseCount reads an engagement counter such as "1,234", "1.2万" or "3w".
// Unparseable text counts as zero.
func ParseCount(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	num := countPattern.FindString(s)
	if num == "" {
		return 0
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if strings.Contains(s, "万") || strings.ContainsAny(s, "wW") {
		v *= 10000
	}
	return int(math.Round(v))
}

// #endregion counts

// #region time

var (
	fullDate     = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	monthDay     = regexp.MustCompile(`(\d{1,2})-(\d{1,2})`)
	relative     = regexp.MustCompile(`(\d+)\s*(分钟|小时|天)前`)
	yesterdayAt  = regexp.MustCompile(`昨天\s*(\d{1,2}):(\d{2})`)
	todayAtClock = regexp.MustCompile(`今天\s*(\d{1,2}):(\d{2})`)
)

// ParsePublishTime interprets the date strings the site shows under a note:
// "2024-03-05", "03-05" (current year), "3天前", "昨天 12:30", "今天 08:00",
// or an RFC 3339 timestamp. Anything else yields nil.
func ParsePublishTime(raw string, now time.Time) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	loc := now.Location()
	at := func(y, mo, d, h, mi int) *time.Time {
		t := time.Date(y, time.Month(mo), d, h, mi, 0, 0, loc)
		return &t
	}

	if m := fullDate.FindStringSubmatch(raw); m != nil {
		return at(atoi(m[1]), atoi(m[2]), atoi(m[3]), 0, 0)
	}
	if m := relative.FindStringSubmatch(raw); m != nil {
		n := time.Duration(atoi(m[1]))
		var t time.Time
		switch m[2] {
		case "分钟":
			t = now.Add(-n * time.Minute)
		case "小时":
			t = now.Add(-n * time.Hour)
		default:
			t = now.AddDate(0, 0, -int(n))
		}
		return &t
	}
	if m := yesterdayAt.FindStringSubmatch(raw); m != nil {
		y := now.AddDate(0, 0, -1)
		return at(y.Year(), int(y.Month()), y.Day(), atoi(m[1]), atoi(m[2]))
	}
	if m := todayAtClock.FindStringSubmatch(raw); m != nil {
		return at(now.Year(), int(now.Month()), now.Day(), atoi(m[1]), atoi(m[2]))
	}
	if m := monthDay.FindStringSubmatch(raw); m != nil {
		return at(now.Year(), atoi(m[1]), atoi(m[2]), 0, 0)
	}
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// #endregion time

// #region images

// ParseImageURLs returns the note's image URLs in page order, deduplicated
// and capped at limit. Selectors are tried in order until one yields images;
// all <img> elements are the last resort.
func ParseImageURLs(html string, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("xhs: parse image html: %w", err)
	}

	var urls []string
	for _, sel := range imageSelectors {
		urls = collectImages(doc.Find(sel), limit)
		if len(urls) > 0 {
			return urls, nil
		}
	}
	return collectImages(doc.Find("img"), limit), nil
}

func collectImages(sel *goquery.Selection, limit int) []string {
	var out []string
	seen := map[string]bool{}
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.AttrOr("src", "")
		if src == "" || strings.HasPrefix(src, "data:") {
			src = s.AttrOr("data-src", "")
		}
		if !isNoteImage(src, s.AttrOr("class", "")) || seen[src] {
			return true
		}
		seen[src] = true
		out = append(out, normalizeImageURL(src))
		return len(out) < limit
	})
	return out
}

func isNoteImage(src, class string) bool {
	if src == "" {
		return false
	}
	class = strings.ToLower(class)
	for _, ex := range imageExclude {
		if strings.Contains(class, ex) {
			return false
		}
	}
	for _, h := range imageHosts {
		if strings.Contains(src, h) {
			return true
		}
	}
	return false
}

func normalizeImageURL(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

// #endregion images

// #region search

// ParseSearchResults extracts note cards from a rendered search page.
// Cards without a resolvable note id are dropped; duplicates keep the first.
func ParseSearchResults(html, baseURL string) ([]websearch.Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("xhs: parse search html: %w", err)
	}

	cards := doc.Find(`section.note-item`)
	if cards.Length() == 0 {
		cards = doc.Find(`[class*="note-item"]`)
	}

	var out []websearch.Result
	seen := map[string]bool{}
	cards.Each(func(_ int, card *goquery.Selection) {
		href := cardHref(card)
		id := NoteID(href)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		r := websearch.Result{
			NoteID: id,
			URL:    NoteURL(baseURL, id, href),
			Title:  strings.TrimSpace(firstSelText(card, `.title span`, `.title`, `[class*="title"]`)),
			Author: strings.TrimSpace(firstSelText(card, `.author .name`, `[class*="author"] [class*="name"]`, `.name`)),
			Likes:  ParseCount(firstSelText(card, likeSelectors...)),
		}
		if img := card.Find("img").First(); img.Length() > 0 {
			if src := img.AttrOr("src", ""); isNoteImage(src, img.AttrOr("class", "")) {
				r.Cover = normalizeImageURL(src)
			}
		}
		out = append(out, r)
	})
	return out, nil
}

// cardHref prefers the link carrying an access token.
func cardHref(card *goquery.Selection) string {
	var fallback string
	var withToken string
	card.Find(`a[href*="/explore/"], a[href*="/search_result/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		if fallback == "" {
			fallback = href
		}
		if strings.Contains(href, "xsec_token=") {
			withToken = href
			return false
		}
		return true
	})
	if withToken != "" {
		return withToken
	}
	return fallback
}

// NoteURL builds the canonical note URL for id, carrying over the access
// token from href when present.
func NoteURL(baseURL, id, href string) string {
	u := strings.TrimRight(baseURL, "/") + "/explore/" + id
	parsed, err := url.Parse(href)
	if err != nil {
		return u
	}
	token := parsed.Query().Get("xsec_token")
	if token == "" {
		return u
	}
	q := url.Values{}
	q.Set("xsec_token", token)
	q.Set("xsec_source", "pc_search")
	return u + "?" + q.Encode()
}

// #endregion search

// #region helpers

func firstText(doc *goquery.Document, selectors ...string) string {
	return firstSelText(doc.Selection, selectors...)
}

func firstSelText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstCount returns the first non-zero count among selectors.
func firstCount(doc *goquery.Document, selectors ...string) int {
	for _, sel := range selectors {
		if n := ParseCount(doc.Find(sel).First().Text()); n > 0 {
			return n
		}
	}
	return 0
}

func absoluteURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// #endregion helpers
