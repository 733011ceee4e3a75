package xhs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noteURL = "https://www.xiaohongshu.com/explore/66a1b2c3d4?xsec_token=TKN&xsec_source=pc_search"

const noteHTML = `<html><head>
<meta property="og:title" content="东京五日自由行攻略 - 小红书">
</head><body>
<div class="note-container">
  <div class="author-wrapper"><a href="/user/profile/5f1a"><span class="author-name">旅行的猫</span></a></div>
  <div class="swiper">
    <img class="note-slider-img" src="https://sns-webpic-qc.xhscdn.com/a.jpg">
    <img class="note-slider-img" src="https://sns-webpic-qc.xhscdn.com/b.jpg">
    <img class="note-slider-img" src="https://sns-webpic-qc.xhscdn.com/a.jpg">
  </div>
  <div class="desc"><span>第一天浅草寺，第二天上野公园，第三天涩谷和新宿，交通卡一定要提前准备。</span></div>
  <div class="labels"><a class="tag">#东京</a><a class="tag">#自由行</a><a class="tag">#东京</a><a class="tag">旅行</a></div>
  <span class="publish-time">2024-03-05 上海</span>
  <div class="interactions">
    <span class="like-wrapper"><span class="count">1.2万</span></span>
    <span class="collect-wrapper"><span class="count">3,456</span></span>
    <span class="chat-wrapper"><span class="count">89</span></span>
  </div>
  <img class="avatar" src="https://sns-avatar-qc.xhscdn.com/u.jpg">
</div>
</body></html>`

func TestParseNote(t *testing.T) {
	note, err := ParseNote(noteHTML, noteURL, 10)
	require.NoError(t, err)

	assert.Equal(t, "66a1b2c3d4", note.NoteID)
	assert.Equal(t, noteURL, note.URL)
	assert.Equal(t, "东京五日自由行攻略", note.Title)
	assert.True(t, strings.HasPrefix(note.Content, "第一天浅草寺"))
	assert.Equal(t, "旅行的猫", note.Author.Name)
	assert.Equal(t, "https://www.xiaohongshu.com/user/profile/5f1a", note.Author.URL)
	assert.Equal(t, []string{"东京", "自由行"}, note.Tags)
	assert.Equal(t, 12000, note.Likes)
	assert.Equal(t, 3456, note.Collects)
	assert.Equal(t, 89, note.Comments)
	assert.Equal(t, "2024-03-05 上海", note.PublishTimeRaw)
	require.NotNil(t, note.PublishTime)
	assert.Equal(t, 2024, note.PublishTime.Year())
}

func TestParseNote_Defaults(t *testing.T) {
	html := `<html><body><div class="note-title">标题</div><div class="note-content">short</div></body></html>`
	note, err := ParseNote(html, "https://www.xiaohongshu.com/explore/x1", 10)
	require.NoError(t, err)

	assert.Equal(t, "标题", note.Title)
	assert.Equal(t, "short", note.Content, "a short body is kept when nothing longer exists")
	assert.Equal(t, unknownAuthor, note.Author.Name)
	assert.Zero(t, note.Likes)
	assert.Nil(t, note.PublishTime)
}

func TestParseNote_ShortContent(t *testing.T) {
	html := `<html><head><meta property="og:title" content="扩展坞 - 小红书"></head>
<body><div class="note-content">好用，推荐买</div></body></html>`
	note, err := ParseNote(html, noteURL, 10)
	require.NoError(t, err)
	assert.Equal(t, "扩展坞", note.Title)
	assert.Equal(t, "好用，推荐买", note.Content)

	untitled := `<html><body><div class="note-content">好用，推荐买</div></body></html>`
	note, err = ParseNote(untitled, noteURL, 10)
	require.NoError(t, err, "a short body alone is still a note")
	assert.Equal(t, "好用，推荐买", note.Content)
}

func TestParseNote_LongerLaterSelectorWins(t *testing.T) {
	html := `<html><body><div class="note-title">t</div>
<div class="note-content">太短</div>
<div class="content">这一段正文足够长，超过了最少字数的限制。</div></body></html>`
	note, err := ParseNote(html, noteURL, 10)
	require.NoError(t, err)
	assert.Equal(t, "这一段正文足够长，超过了最少字数的限制。", note.Content)
}

func TestParseNote_CountsFallThroughZero(t *testing.T) {
	html := `<html><body><div class="note-title">t</div>
<span class="like-wrapper"><span class="count">赞</span></span>
<span class="like-count">1.5w</span>
<span class="collect-wrapper"><span class="count">0</span></span>
<span class="collect-count">42</span>
<span class="chat-wrapper"><span class="count">评论</span></span></body></html>`
	note, err := ParseNote(html, noteURL, 10)
	require.NoError(t, err)
	assert.Equal(t, 15000, note.Likes)
	assert.Equal(t, 42, note.Collects)
	assert.Zero(t, note.Comments)
}

func TestParseNote_NotFound(t *testing.T) {
	_, err := ParseNote(`<html><body><div class="error">笔记不见了</div></body></html>`, noteURL, 10)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = ParseNote(`<html><body><div>loading</div></body></html>`, noteURL, 10)
	assert.True(t, errors.Is(err, ErrNoContent), "got %v", err)
}

func TestNoteID(t *testing.T) {
	cases := map[string]string{
		"https://www.xiaohongshu.com/explore/abc123?xsec_token=x": "abc123",
		"/search_result/def456?xsec_token=y":                      "def456",
		"https://www.xiaohongshu.com/discovery/item/ghi789":       "ghi789",
		"https://www.xiaohongshu.com/user/profile/u1":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NoteID(in), in)
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1,234", 1234},
		{"1.2万", 12000},
		{"3w", 30000},
		{" 89 ", 89},
		{"10+", 10},
		{"赞", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseCount(tc.in), tc.in)
	}
}

func TestParsePublishTime(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	day := func(y int, m time.Month, d, h, mi int) time.Time {
		return time.Date(y, m, d, h, mi, 0, 0, time.UTC)
	}
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05 上海", day(2024, 3, 5, 0, 0)},
		{"编辑于 03-05", day(2026, 3, 5, 0, 0)},
		{"3天前", day(2026, 5, 7, 12, 0)},
		{"2小时前", day(2026, 5, 10, 10, 0)},
		{"15分钟前", day(2026, 5, 10, 11, 45)},
		{"昨天 21:30", day(2026, 5, 9, 21, 30)},
		{"今天 08:05", day(2026, 5, 10, 8, 5)},
		{"2024-03-05T10:00:00Z", day(2024, 3, 5, 10, 0)},
	}
	for _, tc := range cases {
		got := ParsePublishTime(tc.in, now)
		require.NotNil(t, got, tc.in)
		assert.True(t, tc.want.Equal(*got), "%s: got %v want %v", tc.in, *got, tc.want)
	}

	assert.Nil(t, ParsePublishTime("", now))
	assert.Nil(t, ParsePublishTime("刚刚", now))
}

func TestParseImageURLs(t *testing.T) {
	urls, err := ParseImageURLs(noteHTML, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://sns-webpic-qc.xhscdn.com/a.jpg",
		"https://sns-webpic-qc.xhscdn.com/b.jpg",
	}, urls)
}

func TestParseImageURLs_FallbackSelector(t *testing.T) {
	html := `<html><body>
		<img class="avatar-item" src="https://ci.xiaohongshu.com/avatar.jpg">
		<img src="//ci.xiaohongshu.com/x.jpg">
		<img src="https://example.com/ad.jpg">
	</body></html>`
	urls, err := ParseImageURLs(html, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ci.xiaohongshu.com/x.jpg"}, urls)
}

func TestParseImageURLs_Cap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, `<img class="note-slider-img" src="https://sns-webpic-qc.xhscdn.com/%d.jpg">`, i)
	}
	b.WriteString("</body></html>")

	urls, err := ParseImageURLs(b.String(), MaxCarouselImages)
	require.NoError(t, err)
	assert.Len(t, urls, MaxCarouselImages)
	assert.Equal(t, "https://sns-webpic-qc.xhscdn.com/0.jpg", urls[0])
}

const searchHTML = `<html><body><div class="feeds-container">
<section class="note-item">
  <a href="/explore/abc123" style="display:none"></a>
  <a class="cover" href="/search_result/abc123?xsec_token=TOKEN1&xsec_source="><img src="https://sns-webpic-qc.xhscdn.com/c1.jpg"></a>
  <div class="footer">
    <a class="title"><span>东京攻略</span></a>
    <div class="card-bottom-wrapper">
      <a class="author"><span class="name">小王</span></a>
      <span class="like-wrapper"><span class="count">1.5万</span></span>
    </div>
  </div>
</section>
<section class="note-item">
  <a class="cover" href="/explore/def456"><img src="https://sns-webpic-qc.xhscdn.com/c2.jpg"></a>
  <div class="footer">
    <a class="title"><span>大阪美食</span></a>
    <a class="author"><span class="name">小李</span></a>
    <span class="like-wrapper"><span class="count">12</span></span>
  </div>
</section>
<section class="note-item">
  <a class="cover" href="/explore/abc123?xsec_token=TOKEN2"></a>
</section>
<section class="note-item"><div class="ad">广告</div></section>
</div></body></html>`

func TestParseSearchResults(t *testing.T) {
	results, err := ParseSearchResults(searchHTML, "https://www.xiaohongshu.com")
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "abc123", first.NoteID)
	assert.Equal(t, "https://www.xiaohongshu.com/explore/abc123?xsec_source=pc_search&xsec_token=TOKEN1", first.URL)
	assert.Equal(t, "东京攻略", first.Title)
	assert.Equal(t, "小王", first.Author)
	assert.Equal(t, 15000, first.Likes)
	assert.Equal(t, "https://sns-webpic-qc.xhscdn.com/c1.jpg", first.Cover)

	second := results[1]
	assert.Equal(t, "https://www.xiaohongshu.com/explore/def456", second.URL)
	assert.Equal(t, 12, second.Likes)
}
