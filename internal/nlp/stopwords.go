package nlp

// englishStopWords is the default English stop-word set.  It covers function
// words plus filler terms common in customs correspondence ("item", "goods")
// that carry no classification signal.
var englishStopWords = []string{
	"a", "an", "the", "and", "or", "but", "if", "of", "at", "by", "for",
	"with", "about", "against", "between", "into", "through", "during",
	"before", "after", "above", "below", "to", "from", "up", "down", "in",
	"out", "on", "off", "over", "under", "again", "further", "then", "once",
	"here", "there", "all", "any", "both", "each", "few", "more", "most",
	"some", "such", "no", "nor", "not", "only", "own", "same", "so", "than",
	"too", "very", "can", "will", "just", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "do", "does", "did", "this",
	"that", "these", "those", "it", "its", "as", "etc", "per", "via",
	"item", "items", "goods", "product", "products", "type", "types",
	"made", "used", "use", "new", "also", "which", "whether",
}

// koreanStopWords is the default Korean stop-word set: particles, conjunctions
// and filler nouns that appear in virtually every product description.
var koreanStopWords = []string{
	"및", "또는", "그리고", "등", "기타", "있는", "없는", "위한", "위해",
	"대한", "관한", "의한", "따른", "통해", "부터", "까지", "에서", "으로",
	"이다", "하다", "되다", "것", "수", "그", "이", "저", "때", "중",
	"제품", "물품", "상품", "용품", "사용", "용도", "종류", "형태",
	"포함", "제외", "해당", "관련", "경우", "여부", "모든", "각종",
}
