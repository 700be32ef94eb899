package model

// Location tags a profile may carry and a filter may request. The product
// vocabulary is the Korean first-level administrative regions.
var LocationList = []string{
	"서울", "부산", "인천", "대구", "대전", "광주", "울산", "세종",
	"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
}

var InterestList = []string{
	"게임", "캠핑", "헬스장", "노래방", "여행", "카페", "호캉스", "독서",
	"사진", "만화", "영화", "애니메이션", "PC방", "치맥", "한강", "와인",
	"카공", "맛집 탐방", "주식/투자", "음악 감상", "드라이브", "자기계발",
	"요리", "드로잉", "악기연주", "위스키",
}

var locationSet = toSet(LocationList)

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, v := range list {
		set[v] = struct{}{}
	}
	return set
}

// ValidLocations reports whether tags is non-empty and every tag is a known
// region.
func ValidLocations(tags []string) bool {
	if len(tags) == 0 {
		return false
	}
	for _, tag := range tags {
		if _, ok := locationSet[tag]; !ok {
			return false
		}
	}
	return true
}
