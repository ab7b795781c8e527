package normalizer

import (
	"regexp"
	"strings"
)

// Address is a free-form Korean address split into region (si), district (gu)
// and whatever is left. Empty fields mean the part was not found.
type Address struct {
	Si     string `json:"si,omitempty"`
	Gu     string `json:"gu,omitempty"`
	Detail string `json:"detail_address,omitempty"`
}

// IsZero reports whether nothing was recognised.
func (a Address) IsZero() bool {
	return a.Si == "" && a.Gu == "" && a.Detail == ""
}

type regionAlias struct {
	alias     string
	canonical string
}

// regionAliases is scanned in order and the first alias contained in the input
// wins, so long forms must precede their prefixes.
var regionAliases = []regionAlias{
	{"서울특별시", "서울특별시"},
	{"서울시", "서울특별시"},
	{"서울", "서울특별시"},
	{"부산광역시", "부산광역시"},
	{"부산시", "부산광역시"},
	{"부산", "부산광역시"},
	{"대구광역시", "대구광역시"},
	{"대구시", "대구광역시"},
	{"대구", "대구광역시"},
	{"인천광역시", "인천광역시"},
	{"인천시", "인천광역시"},
	{"인천", "인천광역시"},
	{"광주광역시", "광주광역시"},
	{"광주시", "광주광역시"},
	{"광주", "광주광역시"},
	{"대전광역시", "대전광역시"},
	{"대전시", "대전광역시"},
	{"대전", "대전광역시"},
	{"울산광역시", "울산광역시"},
	{"울산시", "울산광역시"},
	{"울산", "울산광역시"},
	{"세종특별자치시", "세종특별자치시"},
	{"세종시", "세종특별자치시"},
	{"세종", "세종특별자치시"},
	{"경기도", "경기도"},
	{"경기", "경기도"},
	{"강원도", "강원도"},
	{"강원특별자치도", "강원특별자치도"},
	{"강원", "강원특별자치도"},
	{"충청북도", "충청북도"},
	{"충북", "충청북도"},
	{"충청남도", "충청남도"},
	{"충남", "충청남도"},
	{"전라북도", "전라북도"},
	{"전북특별자치도", "전북특별자치도"},
	{"전북", "전북특별자치도"},
	{"전라남도", "전라남도"},
	{"전남", "전라남도"},
	{"경상북도", "경상북도"},
	{"경북", "경상북도"},
	{"경상남도", "경상남도"},
	{"경남", "경상남도"},
	{"제주특별자치도", "제주특별자치도"},
	{"제주도", "제주특별자치도"},
	{"제주", "제주특별자치도"},
}

// districtPattern matches a Hangul run ending in 구, 군 or 시.
var districtPattern = regexp.MustCompile(`[가-힣]+(?:구|군|시)`)

// maxDistricts caps how many district tokens end up in Gu (e.g. "성남시 분당구").
const maxDistricts = 2

// ParseAddress splits raw into region, district and detail parts.
// It never fails: unrecognised input ends up in Detail.
func ParseAddress(raw string) Address {
	rest := strings.TrimSpace(fold(raw))
	if rest == "" {
		return Address{}
	}

	var addr Address
	for _, r := range regionAliases {
		if strings.Contains(rest, r.alias) {
			addr.Si = r.canonical
			rest = strings.TrimSpace(strings.Replace(rest, r.alias, "", 1))
			break
		}
	}

	districts := districtPattern.FindAllString(rest, -1)
	if len(districts) > maxDistricts {
		districts = districts[:maxDistricts]
	}
	if len(districts) > 0 {
		addr.Gu = strings.Join(districts, " ")
		for _, d := range districts {
			rest = strings.TrimSpace(strings.Replace(rest, d, "", 1))
		}
	}

	addr.Detail = rest
	return addr
}

