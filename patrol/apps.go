package patrol

// AppPackages maps well-known app display names to Android package names.
// Patrol configs may reference an app either way; AppMatches accepts both.
var AppPackages = map[string]string{
	"WeChat":      "com.tencent.mm",
	"Alipay":      "com.eg.android.AlipayGphone",
	"Taobao":      "com.taobao.taobao",
	"Meituan":     "com.sankuai.meituan",
	"Douyin":      "com.ss.android.ugc.aweme",
	"Toutiao":     "com.ss.android.article.news",
	"Bilibili":    "tv.danmaku.bili",
	"Xiaohongshu": "com.xingin.xhs",
	"QQ":          "com.tencent.mobileqq",
	"Weibo":       "com.sina.weibo",
	"JD":          "com.jingdong.app.mall",
	"Settings":    "com.android.settings",
	"Chrome":      "com.android.chrome",
	"Maps":        "com.google.android.apps.maps",
}

// AppName resolves a package name back to its display name, or returns the
// empty string when the package is unknown.
func AppName(pkg string) string {
	for name, p := range AppPackages {
		if p == pkg {
			return name
		}
	}
	return ""
}

// AppMatches reports whether the app currently in the foreground satisfies an
// expectation expressed either as a display name or as a package name.
func AppMatches(current, expected string) bool {
	if current == "" || expected == "" {
		return false
	}
	if current == expected {
		return true
	}
	// The agent may report a display name while the config names a package,
	// or the other way around.
	if name := AppName(expected); name != "" && current == name {
		return true
	}
	if pkg, ok := AppPackages[expected]; ok && current == pkg {
		return true
	}
	if pkg, ok := AppPackages[current]; ok && pkg == expected {
		return true
	}
	return false
}
