package normalizer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobflow/go-jobflow/internal/domain"
)

// stubResolver files everything under 기타 except a couple of known names.
type stubResolver struct{}

func (stubResolver) Resolve(name string) domain.TechStack {
	norm := NormalizeTechName(name)
	switch norm {
	case "go", "golang":
		return domain.TechStack{Name: "Go", Category: "언어", NormalizedName: "go"}
	case "":
		return domain.TechStack{}
	}
	return domain.TechStack{Name: name, Category: "기타", NormalizedName: norm}
}

func newTestNormalizer(now time.Time) *Normalizer {
	n := NewNormalizer(stubResolver{})
	n.now = func() time.Time { return now }
	return n
}

func TestNormalizeSaramin(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, KST)
	n := newTestNormalizer(now)

	raw := &domain.RawJob{
		ID:     "48213377",
		URL:    "https://www.saramin.co.kr/zf_user/jobs/relay/view?rec_idx=48213377",
		Source: string(domain.SourceSaramin),
		RawData: map[string]any{
			"title":           "  백엔드 개발자 &amp; 플랫폼 엔지니어 ",
			"company":         "(주)잡플로우",
			"location":        "서울 강남구 테헤란로 427",
			"salary":          "연봉 4,000~6,000만원",
			"experience":      "경력 3년↑",
			"employment_type": "정규직",
			"education":       "대졸↑",
			"deadline":        "~11/07(금)",
			"sectors":         []any{"백엔드/서버개발", "Go"},
			"tech_stack":      "Go, Golang, Kubernetes, 데이터 분석",
		},
		ExtractedAt: now,
	}

	job, err := n.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "백엔드 개발자 & 플랫폼 엔지니어", job.Posting.Title)
	assert.Equal(t, job.Posting.Title, job.Posting.Description)
	assert.Equal(t, "서울특별시", job.Posting.Si)
	assert.Equal(t, "강남구", job.Posting.Gu)
	assert.Equal(t, "테헤란로 427", job.Posting.DetailAddress)
	assert.Equal(t, job.Posting.Si, job.Company.Si)
	require.NotNil(t, job.Posting.SalaryMin)
	require.NotNil(t, job.Posting.SalaryMax)
	assert.Equal(t, 4000, *job.Posting.SalaryMin)
	assert.Equal(t, 6000, *job.Posting.SalaryMax)
	assert.False(t, job.Posting.SalaryNegotiable)
	assert.Equal(t, "경력", job.Posting.ExperienceLevel)
	assert.Equal(t, "정규직", job.Posting.EmploymentType)
	assert.True(t, job.Posting.IsActive)

	require.NotNil(t, job.Posting.Deadline)
	assert.True(t, job.Posting.Deadline.Equal(time.Date(2026, 11, 7, 0, 0, 0, 0, KST)))
	assert.True(t, job.Posting.PostedAt.Equal(time.Date(2026, 10, 17, 0, 0, 0, 0, KST)))

	require.NotNil(t, job.Category)
	assert.Equal(t, "백엔드/서버개발", job.Category.Name)

	// "Golang" collapses into Go, the Hangul-only name has no key
	require.Len(t, job.TechStacks, 2)
	assert.Equal(t, "go", job.TechStacks[0].NormalizedName)
	assert.Equal(t, "kubernetes", job.TechStacks[1].NormalizedName)
	assert.True(t, job.TechStacks[1].IsRequired)

	require.NoError(t, domain.Validate(job))
}

func TestNormalizeRocketpunch(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, KST)
	n := newTestNormalizer(now)

	raw := &domain.RawJob{
		ID:     "151204",
		URL:    "https://www.rocketpunch.com/jobs/151204",
		Source: string(domain.SourceRocketpunch),
		RawData: map[string]any{
			"title":            "Frontend Engineer",
			"company_name":     "펀치랩",
			"company_address":  "경기 성남시 분당구 판교역로 235",
			"location":         "서울 성동구",
			"salary":           "면접 후 결정",
			"career":           "신입 / 경력",
			"job_type":         "정규직",
			"description":      "React 기반 웹 서비스 개발",
			"published_at":     "2026-10-02T11:00:00+09:00",
			"deadline":         "상시채용",
			"industry":         "소프트웨어",
			"employee_count":   float64(42),
			"stacks_required":  []any{map[string]any{"name": "React"}, "TypeScript"},
			"stacks_preferred": []any{"Next.js", "React"},
		},
	}

	job, err := n.Normalize(raw)
	require.NoError(t, err)

	assert.True(t, job.Posting.SalaryNegotiable)
	assert.Nil(t, job.Posting.SalaryMin)
	assert.Nil(t, job.Posting.SalaryMax)
	assert.Equal(t, "신입·경력", job.Posting.ExperienceLevel)
	assert.Nil(t, job.Posting.Deadline)
	assert.True(t, job.Posting.PostedAt.Equal(time.Date(2026, 10, 2, 11, 0, 0, 0, KST)))
	assert.Equal(t, now, job.Posting.CrawledAt)

	assert.Equal(t, "서울특별시", job.Posting.Si)
	assert.Equal(t, "성동구", job.Posting.Gu)
	assert.Equal(t, "경기도", job.Company.Si)
	assert.Equal(t, "성남시 분당구", job.Company.Gu)
	assert.Equal(t, "판교역로 235", job.Company.DetailAddress)
	require.NotNil(t, job.Company.EmployeeCount)
	assert.Equal(t, 42, *job.Company.EmployeeCount)
	assert.Nil(t, job.Category)

	names := map[string]bool{}
	for _, ts := range job.TechStacks {
		names[ts.NormalizedName] = ts.IsRequired
	}
	assert.Equal(t, map[string]bool{"react": true, "typescript": true, "nextjs": false}, names)
}

func TestNormalizeIncomplete(t *testing.T) {
	n := newTestNormalizer(time.Now())

	tests := []struct {
		name string
		raw  *domain.RawJob
	}{
		{"nil", nil},
		{"no title", &domain.RawJob{ID: "1", URL: "https://x", Source: "saramin", RawData: map[string]any{"company": "A"}}},
		{"no company", &domain.RawJob{ID: "1", URL: "https://x", Source: "saramin", RawData: map[string]any{"title": "T"}}},
		{"no url", &domain.RawJob{ID: "1", Source: "saramin", RawData: map[string]any{"title": "T", "company": "A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIncompleteRecord))
		})
	}
}

func TestNormalizeGenericSource(t *testing.T) {
	n := newTestNormalizer(time.Date(2026, 10, 17, 0, 0, 0, 0, KST))

	job, err := n.Normalize(&domain.RawJob{
		ID:     "g-1",
		URL:    "https://example.com/jobs/1",
		Source: "wanted",
		RawData: map[string]any{
			"job_title":    "데이터 엔지니어",
			"company_name": "예시컴퍼니",
			"address":      "대전 유성구 대학로 99",
			"pay":          "3500만원 이상",
			"career":       "경력무관",
			"skills":       []string{"Python", "Airflow"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "대전광역시", job.Posting.Si)
	assert.Equal(t, "유성구", job.Posting.Gu)
	require.NotNil(t, job.Posting.SalaryMin)
	assert.Equal(t, 3500, *job.Posting.SalaryMin)
	assert.Nil(t, job.Posting.SalaryMax)
	assert.Equal(t, "무관", job.Posting.ExperienceLevel)
	assert.Len(t, job.TechStacks, 2)
}

func TestMapExperienceLevel(t *testing.T) {
	tests := map[string]string{
		"신입":          "신입",
		"경력 5년 이상":    "경력",
		"3~5년":        "경력",
		"신입 · 경력":     "신입·경력",
		"경력무관":        "무관",
		"":            "",
		"인턴":          "인턴",
	}
	for in, want := range tests {
		assert.Equal(t, want, mapExperienceLevel(in), in)
	}
}
