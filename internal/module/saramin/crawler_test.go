package saramin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobflow/go-jobflow/internal/common/extractor"
	"github.com/jobflow/go-jobflow/internal/common/normalizer"
	"github.com/jobflow/go-jobflow/internal/domain"
)

const searchPage = `<html><body><div class="content">
<div class="item_recruit" value="48912345">
  <div class="area_job">
    <h2 class="job_tit"><a href="/zf_user/jobs/relay/view?view_type=search&amp;rec_idx=48912345" title="백엔드 개발자 (Go)"><span>백엔드 개발자 (Go)</span></a></h2>
    <div class="job_date"><span class="date">~ 11/30(월)</span></div>
    <div class="job_condition">
      <span><a>서울</a> <a>강남구</a></span>
      <span>경력 3년↑</span>
      <span>대학교(4년)↑</span>
      <span>정규직</span>
      <span>연봉 4,000~6,000만원</span>
    </div>
    <div class="job_sector"><a>백엔드/서버개발</a>, <a>Go</a>, <a>Kubernetes</a> <span class="job_day">등록일 26/10/15</span></div>
  </div>
  <div class="area_corp"><strong class="corp_name"><a href="/zf_user/company-info/view?csn=1">(주)잡플로우</a></strong></div>
</div>
<div class="item_recruit" value="48912399">
  <div class="area_job">
    <h2 class="job_tit"><a href="/zf_user/jobs/relay/view?view_type=search&amp;rec_idx=48912399"><span>프론트엔드 개발자</span></a></h2>
    <div class="job_date"><span class="date">상시채용</span></div>
    <div class="job_condition"><span><a>경기</a> <a>성남시 분당구</a></span><span>신입·경력</span></div>
    <div class="job_sector"><a>프론트엔드</a> <span class="job_day">수정일 26/10/16</span></div>
  </div>
  <div class="area_corp"><strong class="corp_name"><a>카카오</a></strong></div>
</div>
</div></body></html>`

// newSearchServer serves searchPage as page 1 and an empty list after it
func newSearchServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Query().Get("recruitPage") == "1" {
			io.WriteString(w, searchPage)
			return
		}
		io.WriteString(w, `<html><body><div class="content"></div></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlSearchList(t *testing.T) {
	srv := newSearchServer(t)
	c := NewCrawler(NewDefaultExtractor(extractor.ExtractorConfig{}), Config{
		ListURL:  srv.URL + "/zf_user/search/recruit?cat_mcls=2",
		MaxPages: 3,
	})
	c.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, normalizer.KST) }

	jobs, err := c.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	first := jobs[0]
	assert.Equal(t, "48912345", first.ID)
	assert.Equal(t, "saramin", first.Source)
	assert.True(t, strings.HasPrefix(first.URL, srv.URL+"/zf_user/jobs/relay/view"))
	assert.Equal(t, "백엔드 개발자 (Go)", first.RawData["title"])
	assert.Equal(t, "(주)잡플로우", first.RawData["company"])
	assert.Equal(t, "서울 강남구", first.RawData["location"])
	assert.Equal(t, "경력 3년↑", first.RawData["experience"])
	assert.Equal(t, "정규직", first.RawData["employment_type"])
	assert.Equal(t, "연봉 4,000~6,000만원", first.RawData["salary"])
	assert.Equal(t, []string{"Go", "Kubernetes"}, first.RawData["tags"])
	assert.Equal(t, "26/10/15", first.RawData["posted_at"])
	assert.NotContains(t, first.RawData, "job_day")
	assert.Empty(t, first.LastUpdatedOn)
	assert.True(t, time.Date(2026, 11, 30, 0, 0, 0, 0, normalizer.KST).Equal(first.ExpiredOn))

	second := jobs[1]
	assert.Equal(t, "48912399", second.ID)
	assert.Equal(t, "26/10/16", second.LastUpdatedOn)
	assert.True(t, second.ExpiredOn.IsZero())
	assert.NotContains(t, second.RawData, "tags")
}

func TestCrawledPostingNormalizes(t *testing.T) {
	srv := newSearchServer(t)
	c := NewCrawler(NewDefaultExtractor(extractor.ExtractorConfig{}), Config{ListURL: srv.URL + "/list", MaxPages: 1})

	jobs, err := c.Crawl(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, jobs)

	n := normalizer.NewNormalizer(stubResolver{})
	got, err := n.Normalize(jobs[0])
	require.NoError(t, err)

	assert.Equal(t, "서울특별시", got.Posting.Si)
	assert.Equal(t, "강남구", got.Posting.Gu)
	require.NotNil(t, got.Posting.SalaryMin)
	require.NotNil(t, got.Posting.SalaryMax)
	assert.Equal(t, 4000, *got.Posting.SalaryMin)
	assert.Equal(t, 6000, *got.Posting.SalaryMax)
	assert.Equal(t, "경력", got.Posting.ExperienceLevel)
	require.NotNil(t, got.Category)
	assert.Equal(t, "백엔드/서버개발", got.Category.Name)
	assert.Len(t, got.TechStacks, 2)
}

type stubResolver struct{}

func (stubResolver) Resolve(name string) domain.TechStack {
	n := normalizer.NormalizeTechName(name)
	return domain.TechStack{Name: name, Category: "기타", NormalizedName: n}
}

type fakeExtractor struct {
	pages   map[int][]*domain.RawJob
	errPage int
	calls   []int
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (*domain.RawJob, error) {
	return &domain.RawJob{RawData: map[string]any{"description": "<p>상세</p>"}}, nil
}

func (f *fakeExtractor) ExtractList(ctx context.Context, listURL string, page int) ([]*domain.RawJob, error) {
	f.calls = append(f.calls, page)
	if page == f.errPage {
		return nil, errors.New("blocked")
	}
	return f.pages[page], nil
}

func (f *fakeExtractor) Name() string { return "fake" }

func rawJob(id string) *domain.RawJob {
	return &domain.RawJob{ID: id, URL: "https://example.com/" + id, Source: "saramin", RawData: map[string]any{}}
}

func TestCrawlStopsOnEmptyPage(t *testing.T) {
	ext := &fakeExtractor{pages: map[int][]*domain.RawJob{
		1: {rawJob("1"), rawJob("2")},
		2: {rawJob("3")},
	}}
	c := NewCrawler(ext, Config{MaxPages: 5})

	var batches [][]*domain.RawJob
	err := c.CrawlWithCallback(context.Background(), func(jobs []*domain.RawJob) error {
		batches = append(batches, jobs)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, batches, 2)
	assert.Equal(t, []int{1, 2, 3}, ext.calls)
}

func TestCrawlStopsOnPageError(t *testing.T) {
	ext := &fakeExtractor{errPage: 2, pages: map[int][]*domain.RawJob{
		1: {rawJob("1")},
		3: {rawJob("3")},
	}}
	c := NewCrawler(ext, Config{MaxPages: 5})

	jobs, err := c.Crawl(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, []int{1, 2}, ext.calls)
}

func TestCrawlFetchesDetails(t *testing.T) {
	ext := &fakeExtractor{pages: map[int][]*domain.RawJob{1: {rawJob("1")}}}
	c := NewCrawler(ext, Config{MaxPages: 1, FetchDetails: true})

	jobs, err := c.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "<p>상세</p>", jobs[0].RawData["description"])
}

func TestCrawlCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCrawler(&fakeExtractor{}, Config{MaxPages: 1})
	_, err := c.Crawl(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitJobDay(t *testing.T) {
	label, date := splitJobDay(" 등록일 26/10/15 ")
	assert.Equal(t, "등록일", label)
	assert.Equal(t, "26/10/15", date)

	label, date = splitJobDay("26/10/15")
	assert.Empty(t, label)
	assert.Equal(t, "26/10/15", date)
}
