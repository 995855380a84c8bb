package config

// DefaultNames is the anonymous name pool used when the config file does not
// provide one.
var DefaultNames = []string{
	"ゴン",
	"キルア",
	"クラピカ",
	"レオリオ",
	"ヒソカ",
	"クロロ",
	"ノブナガ",
	"フェイタン",
	"シズク",
	"浅草氏",
	"金森氏",
	"水崎ツバメ",
	"碇シンジ",
	"綾波レイ",
	"アスカ",
	"渚カヲル",
	"葛城ミサト",
	"冬月",
	"赤木リツコ",
	"加持リョウジ",
	"碇ゲンドウ",
	"大豆田とわ子",
	"岸部露伴",
	"青たぬき",
	"コナンくん",
	"蘭姉ちゃん",
	"服部平次",
	"灰原哀",
	"毛利小五郎",
	"目暮警部",
	"園子",
	"しずかちゃん",
	"光彦",
	"コロ助",
	"ルパン",
	"次元大介",
	"不二子",
	"銭形警部",
	"五ェ門",
	"鬼太郎",
	"ねずみ男",
	"猫娘",
	"目玉おやじ",
}
