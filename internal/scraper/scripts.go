package scraper

import "fmt"

const rawCookieScript = `document.cookie`

// Each key is read in its own try block; pages that forbid storage access
// throw on the property access itself.
func storageScript(keys []string) string {
	return fmt.Sprintf(`(() => {
	const out = {};
	for (const k of %s) {
		try {
			out[k] = window.localStorage ? window.localStorage.getItem(k) : null;
		} catch (e) {
			out[k] = null;
		}
	}
	return out;
})()`, jsLiteral(keys))
}

// Reports the direct attribute of the active element (if any) and every
// element whose class name matches the rule's pattern with its box.
func activeItemScript(rule *ActiveItemRule) string {
	return fmt.Sprintf(`(() => {
	const out = { direct: null, candidates: [], viewport: window.innerHeight || document.documentElement.clientHeight || 0 };
	try {
		const active = document.querySelector(%s);
		if (active) {
			const v = active.getAttribute(%s);
			if (v) out.direct = v;
		}
	} catch (e) {}
	try {
		const re = new RegExp(%s);
		for (const el of document.querySelectorAll(%s)) {
			const cls = typeof el.className === "string" ? el.className : el.getAttribute("class") || "";
			const m = cls.match(re);
			if (!m || !m[1]) continue;
			const r = el.getBoundingClientRect();
			out.candidates.push({ id: m[1], top: r.top, bottom: r.bottom });
		}
	} catch (e) {}
	return out;
})()`,
		jsLiteral(rule.ActiveSelector),
		jsLiteral(rule.ActiveAttribute),
		jsLiteral(rule.ClassPattern),
		jsLiteral(rule.CandidateSelector),
	)
}

// JSON is valid JavaScript for strings and arrays of strings.
func jsLiteral(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
