package location

type place struct {
	name  string
	city  string
	state string
	lat   float64
	lng   float64
}

// places are matched longest name first so "port klang" beats "klang".
var places = []place{
	{"kuala lumpur", "Kuala Lumpur", "Wilayah Persekutuan Kuala Lumpur", 3.1390, 101.6869},
	{"kl", "Kuala Lumpur", "Wilayah Persekutuan Kuala Lumpur", 3.1390, 101.6869},
	{"shah alam", "Shah Alam", "Selangor", 3.0733, 101.5185},
	{"petaling jaya", "Petaling Jaya", "Selangor", 3.1073, 101.6067},
	{"subang jaya", "Subang Jaya", "Selangor", 3.0438, 101.5806},
	{"port klang", "Port Klang", "Selangor", 3.0000, 101.4000},
	{"pelabuhan klang", "Port Klang", "Selangor", 3.0000, 101.4000},
	{"klang", "Klang", "Selangor", 3.0449, 101.4456},
	{"puchong", "Puchong", "Selangor", 3.0250, 101.6170},
	{"rawang", "Rawang", "Selangor", 3.3213, 101.5767},
	{"kajang", "Kajang", "Selangor", 2.9935, 101.7874},
	{"cyberjaya", "Cyberjaya", "Selangor", 2.9213, 101.6559},
	{"putrajaya", "Putrajaya", "Wilayah Persekutuan Putrajaya", 2.9264, 101.6964},
	{"johor bahru", "Johor Bahru", "Johor", 1.4927, 103.7414},
	{"pasir gudang", "Pasir Gudang", "Johor", 1.4726, 103.8780},
	{"senai", "Senai", "Johor", 1.6006, 103.6419},
	{"batu pahat", "Batu Pahat", "Johor", 1.8548, 102.9325},
	{"georgetown", "George Town", "Pulau Pinang", 5.4141, 100.3288},
	{"george town", "George Town", "Pulau Pinang", 5.4141, 100.3288},
	{"bayan lepas", "Bayan Lepas", "Pulau Pinang", 5.2945, 100.2593},
	{"butterworth", "Butterworth", "Pulau Pinang", 5.3991, 100.3638},
	{"prai", "Perai", "Pulau Pinang", 5.3833, 100.3833},
	{"ipoh", "Ipoh", "Perak", 4.5975, 101.0901},
	{"seremban", "Seremban", "Negeri Sembilan", 2.7297, 101.9381},
	{"nilai", "Nilai", "Negeri Sembilan", 2.8156, 101.7993},
	{"melaka", "Melaka", "Melaka", 2.1896, 102.2501},
	{"malacca", "Melaka", "Melaka", 2.1896, 102.2501},
	{"kuantan", "Kuantan", "Pahang", 3.8077, 103.3260},
	{"alor setar", "Alor Setar", "Kedah", 6.1248, 100.3678},
	{"kota bharu", "Kota Bharu", "Kelantan", 6.1254, 102.2381},
	{"kuala terengganu", "Kuala Terengganu", "Terengganu", 5.3302, 103.1408},
	{"kangar", "Kangar", "Perlis", 6.4414, 100.1986},
	{"kota kinabalu", "Kota Kinabalu", "Sabah", 5.9804, 116.0735},
	{"kuching", "Kuching", "Sarawak", 1.5535, 110.3593},
	{"labuan", "Labuan", "Wilayah Persekutuan Labuan", 5.2831, 115.2308},
}

type stateCentroid struct {
	state string
	lat   float64
	lng   float64
}

var (
	perlis         = stateCentroid{"Perlis", 6.4449, 100.2048}
	kedah          = stateCentroid{"Kedah", 6.1184, 100.3685}
	penang         = stateCentroid{"Pulau Pinang", 5.4164, 100.3327}
	kelantan       = stateCentroid{"Kelantan", 5.3117, 102.0066}
	terengganu     = stateCentroid{"Terengganu", 5.0936, 102.9802}
	pahang         = stateCentroid{"Pahang", 3.8126, 103.3256}
	perak          = stateCentroid{"Perak", 4.5921, 101.0901}
	selangor       = stateCentroid{"Selangor", 3.0738, 101.5183}
	kualaLumpur    = stateCentroid{"Wilayah Persekutuan Kuala Lumpur", 3.1390, 101.6869}
	putrajaya      = stateCentroid{"Wilayah Persekutuan Putrajaya", 2.9264, 101.6964}
	negeriSembilan = stateCentroid{"Negeri Sembilan", 2.7258, 101.9424}
	melaka         = stateCentroid{"Melaka", 2.1896, 102.2501}
	johor          = stateCentroid{"Johor", 1.4854, 103.7618}
	labuan         = stateCentroid{"Wilayah Persekutuan Labuan", 5.2831, 115.2308}
	sabah          = stateCentroid{"Sabah", 5.9788, 116.0753}
	sarawak        = stateCentroid{"Sarawak", 1.5533, 110.3592}
)

// statesByPrefix maps the first two postcode digits to a state.
var statesByPrefix = map[string]stateCentroid{
	"01": perlis, "02": perlis,
	"05": kedah, "06": kedah, "07": kedah, "08": kedah, "09": kedah,
	"10": penang, "11": penang, "12": penang, "13": penang, "14": penang,
	"15": kelantan, "16": kelantan, "17": kelantan, "18": kelantan,
	"20": terengganu, "21": terengganu, "22": terengganu, "23": terengganu, "24": terengganu,
	"25": pahang, "26": pahang, "27": pahang, "28": pahang, "39": pahang, "49": pahang, "69": pahang,
	"30": perak, "31": perak, "32": perak, "33": perak, "34": perak, "35": perak, "36": perak,
	"40": selangor, "41": selangor, "42": selangor, "43": selangor, "44": selangor, "45": selangor,
	"46": selangor, "47": selangor, "48": selangor, "63": selangor, "64": selangor, "68": selangor,
	"50": kualaLumpur, "51": kualaLumpur, "52": kualaLumpur, "53": kualaLumpur, "54": kualaLumpur,
	"55": kualaLumpur, "56": kualaLumpur, "57": kualaLumpur, "58": kualaLumpur, "59": kualaLumpur, "60": kualaLumpur,
	"62": putrajaya,
	"70": negeriSembilan, "71": negeriSembilan, "72": negeriSembilan, "73": negeriSembilan,
	"75": melaka, "76": melaka, "77": melaka, "78": melaka,
	"79": johor, "80": johor, "81": johor, "82": johor, "83": johor, "84": johor, "85": johor, "86": johor,
	"87": labuan,
	"88": sabah, "89": sabah, "90": sabah, "91": sabah,
	"93": sarawak, "94": sarawak, "95": sarawak, "96": sarawak, "97": sarawak, "98": sarawak,
}
