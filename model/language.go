package model

import "sort"

// Languages lists the ISO 639-3 codes that have a translation column in the
// message table.
var Languages = []string{
	"abk", "aar", "afr", "aka", "sqi", "amh", "ara", "arg", "hye", "asm", "ava", "aze", "bam",
	"bak", "eus", "bel", "ben", "bis", "bos", "bre", "bul", "mya", "cat", "cha", "che", "zho",
	"chu", "chv", "cor", "cos", "hrv", "ces", "dan", "div", "nld", "dzo", "eng", "epo", "est",
	"ewe", "fao", "fin", "fra", "ful", "glg", "lug", "kat", "deu", "guj", "hat", "hau", "heb",
	"hin", "hun", "isl", "ibo", "ind", "ina", "iku", "gle", "ita", "jpn", "jav", "kal", "kan",
	"kas", "kaz", "khm", "kik", "kin", "kir", "kor", "kua", "kur", "lao", "lav", "lim", "lin",
	"lit", "lub", "ltz", "mkd", "mlg", "msa", "mal", "mlt", "glv", "mri", "mar", "ell", "mon",
	"nav", "nep", "nde", "sme", "nor", "nno", "nya", "oci", "ori", "orm", "oss", "pan", "fas",
	"pol", "por", "pus", "que", "ron", "roh", "run", "rus", "smo", "sag", "san", "gla", "srp",
	"sna", "iii", "snd", "sin", "slk", "slv", "som", "nbl", "sot", "spa", "sun", "swa", "ssw",
	"swe", "tgl", "tah", "tgk", "tam", "tat", "tel", "tha", "bod", "tir", "ton", "tso", "tsn",
	"tur", "tuk", "uig", "ukr", "urd", "uzb", "ven", "vie", "cym", "fry", "wol", "xho", "yid",
	"yor", "zul",
}

var sortedLanguages = func() []string {
	out := append([]string(nil), Languages...)
	sort.Strings(out)
	return out
}()

// SupportLanguage reports whether code has a translation column.
func SupportLanguage(code string) bool {
	i := sort.SearchStrings(sortedLanguages, code)
	return i < len(sortedLanguages) && sortedLanguages[i] == code
}
