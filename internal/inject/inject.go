// Package inject builds the instrumentation JavaScript evaluated in page
// context. The script hooks console methods, observes Resource Timing and
// paint/layout-shift/long-task entries, and forwards captured records
// through named bindings into the host. Installation is idempotent and
// entirely page-side; if the page refuses script execution the only symptom
// is absence of data.
package inject

// Binding names registered by the bridge, one per capture domain. The page
// script calls window.<name>(jsonString).
const (
	BindingConsole       = "walnutConsole"
	BindingResources     = "walnutResources"
	BindingPerformance   = "walnutPerformance"
	BindingAccessibility = "walnutAccessibility"
)

// markerFlag guards against double installation when the script is
// re-evaluated on an already instrumented page.
const markerFlag = "__walnutInstalled"

const jsSendHelper = `
function _wnSend(name, payload) {
  try {
    var fn = window[name];
    if (typeof fn === "function") fn(JSON.stringify(payload));
  } catch (_) {}
}
`

const jsConsoleHook = `
var _wnLevels = ["log", "info", "warn", "error", "debug"];
for (var _wi = 0; _wi < _wnLevels.length; _wi++) {
  (function (level) {
    var orig = console[level];
    if (typeof orig !== "function" || orig.__wnWrapped) return;
    var wrapped = function () {
      var parts = [];
      for (var i = 0; i < arguments.length; i++) {
        var a = arguments[i];
        if (typeof a === "string") { parts.push(a); continue; }
        try { parts.push(JSON.stringify(a)); } catch (_) { parts.push(String(a)); }
      }
      _wnSend("` + BindingConsole + `", {level: level, message: parts.join(" ")});
      return orig.apply(console, arguments);
    };
    wrapped.__wnWrapped = true;
    console[level] = wrapped;
  })(_wnLevels[_wi]);
}
`

const jsResourceEntry = `
function _wnResource(e) {
  return {
    url: String(e.name || ""),
    initiator_type: String(e.initiatorType || ""),
    start_time: e.startTime || 0,
    duration: e.duration || 0,
    transfer_size: e.transferSize || 0,
    encoded_size: e.encodedBodySize || 0,
    decoded_size: e.decodedBodySize || 0,
    dns: Math.max(0, (e.domainLookupEnd || 0) - (e.domainLookupStart || 0)),
    tcp: Math.max(0, (e.connectEnd || 0) - (e.connectStart || 0)),
    tls: e.secureConnectionStart > 0 ? Math.max(0, (e.connectEnd || 0) - e.secureConnectionStart) : 0,
    request: Math.max(0, (e.responseStart || 0) - (e.requestStart || 0)),
    response: Math.max(0, (e.responseEnd || 0) - (e.responseStart || 0))
  };
}
`

const jsResourceObserver = `
var _wnSeen = performance.getEntriesByType("resource");
for (var _ri = 0; _ri < _wnSeen.length; _ri++) {
  _wnSend("` + BindingResources + `", _wnResource(_wnSeen[_ri]));
}
try {
  new PerformanceObserver(function (list) {
    var es = list.getEntries();
    for (var i = 0; i < es.length; i++) {
      _wnSend("` + BindingResources + `", _wnResource(es[i]));
    }
  }).observe({type: "resource", buffered: false});
} catch (_) {}
`

const jsNavTiming = `
function _wnNavTiming() {
  var navs = performance.getEntriesByType("navigation");
  if (navs.length === 0) return null;
  var n = navs[0];
  return {
    redirect: Math.max(0, (n.redirectEnd || 0) - (n.redirectStart || 0)),
    dns: Math.max(0, (n.domainLookupEnd || 0) - (n.domainLookupStart || 0)),
    tcp: Math.max(0, (n.connectEnd || 0) - (n.connectStart || 0)),
    tls: n.secureConnectionStart > 0 ? Math.max(0, (n.connectEnd || 0) - n.secureConnectionStart) : 0,
    request: Math.max(0, (n.responseStart || 0) - (n.requestStart || 0)),
    response: n.responseStart || 0,
    dom_processing: Math.max(0, (n.domComplete || 0) - (n.responseEnd || 0)),
    dom_content_loaded: n.domContentLoadedEventEnd || 0,
    load_event: n.loadEventEnd || 0
  };
}
function _wnPaintList() {
  var paints = [];
  var ps = performance.getEntriesByType("paint");
  for (var i = 0; i < ps.length; i++) {
    paints.push({name: ps[i].name, start_time: ps[i].startTime});
  }
  return paints;
}
`

const jsVitalsObservers = `
window.__wnCLS = 0;
window.__wnTBT = 0;
window.__wnLCP = 0;
try {
  new PerformanceObserver(function (list) {
    var es = list.getEntries();
    for (var i = 0; i < es.length; i++) {
      if (!es[i].hadRecentInput) window.__wnCLS += es[i].value;
    }
  }).observe({type: "layout-shift", buffered: true});
} catch (_) {}
try {
  new PerformanceObserver(function (list) {
    var es = list.getEntries();
    for (var i = 0; i < es.length; i++) {
      window.__wnTBT += Math.max(0, es[i].duration - 50);
    }
  }).observe({type: "longtask", buffered: true});
} catch (_) {}
try {
  new PerformanceObserver(function (list) {
    var es = list.getEntries();
    if (es.length) window.__wnLCP = es[es.length - 1].startTime;
  }).observe({type: "largest-contentful-paint", buffered: true});
} catch (_) {}
`

const jsPerformancePush = `
function _wnPushPerf() {
  var resources = [];
  var rs = performance.getEntriesByType("resource");
  for (var i = 0; i < rs.length; i++) resources.push(_wnResource(rs[i]));
  _wnSend("` + BindingPerformance + `", {
    navigation: _wnNavTiming(),
    paints: _wnPaintList(),
    resources: resources,
    cls: window.__wnCLS || 0,
    tbt: window.__wnTBT || 0,
    lcp: window.__wnLCP || 0
  });
}
if (document.readyState === "complete") {
  setTimeout(_wnPushPerf, 0);
} else {
  window.addEventListener("load", function () { setTimeout(_wnPushPerf, 0); });
}
`

const jsAccessibilityScan = `
function _wnAuditA11y() {
  var report = function (rule, impact, selector, summary) {
    _wnSend("` + BindingAccessibility + `", {rule: rule, impact: impact, selector: selector, summary: summary});
  };
  var imgs = document.querySelectorAll("img:not([alt])");
  for (var i = 0; i < imgs.length; i++) {
    report("image-alt", "serious", _wnSelector(imgs[i]), "image element has no alt attribute");
  }
  if (!document.documentElement.getAttribute("lang")) {
    report("html-lang", "moderate", "html", "document has no lang attribute");
  }
  var inputs = document.querySelectorAll("input:not([type=hidden]):not([aria-label]):not([aria-labelledby])");
  for (var j = 0; j < inputs.length; j++) {
    var el = inputs[j];
    if (el.id && document.querySelector("label[for=\"" + el.id + "\"]")) continue;
    if (el.closest("label")) continue;
    report("input-label", "critical", _wnSelector(el), "form control has no associated label");
  }
  var clickables = document.querySelectorAll("a, button");
  for (var k = 0; k < clickables.length; k++) {
    var c = clickables[k];
    if ((c.textContent || "").trim() !== "") continue;
    if (c.getAttribute("aria-label") || c.getAttribute("title")) continue;
    report("empty-control", "serious", _wnSelector(c), "interactive element has no accessible name");
  }
}
function _wnSelector(el) {
  if (el.id) return "#" + el.id;
  var s = el.tagName.toLowerCase();
  if (el.className && typeof el.className === "string") {
    var cls = el.className.trim().split(/\s+/)[0];
    if (cls) s += "." + cls;
  }
  return s;
}
if (document.readyState === "complete" || document.readyState === "interactive") {
  _wnAuditA11y();
} else {
  document.addEventListener("DOMContentLoaded", _wnAuditA11y);
}
`

// InstrumentationScript returns the full page-side instrumentation bundle.
// Safe to evaluate repeatedly: the marker flag makes reruns a no-op.
func InstrumentationScript() string {
	return `(function () {
if (window.` + markerFlag + `) return;
window.` + markerFlag + ` = true;
` + jsSendHelper + jsResourceEntry + jsNavTiming + jsConsoleHook + jsResourceObserver + jsVitalsObservers + jsPerformancePush + jsAccessibilityScan + `
})();`
}

// jsCollectPerformance gathers the full snapshot for a scoring pass:
// navigation timing offsets, paint entries, the resource buffer, and the
// accumulated vitals counters.
const jsCollectPerformance = `
var resources = [];
var rs = performance.getEntriesByType("resource");
for (var j = 0; j < rs.length; j++) {
  resources.push(_wnCollectResource(rs[j]));
}
return JSON.stringify({ok: true, data: {
  navigation: _wnNavTiming(),
  paints: _wnPaintList(),
  resources: resources,
  cls: window.__wnCLS || 0,
  tbt: window.__wnTBT || 0,
  lcp: window.__wnLCP || 0
}});
`

// CollectPerformanceScript returns the one-shot snapshot expression. It is
// self-contained so it works even when the instrumentation bundle never ran
// (the vitals counters then read as absent).
func CollectPerformanceScript() string {
	helper := `function _wnCollectResource(e) {
  return {
    url: String(e.name || ""),
    initiator_type: String(e.initiatorType || ""),
    start_time: e.startTime || 0,
    duration: e.duration || 0,
    transfer_size: e.transferSize || 0,
    encoded_size: e.encodedBodySize || 0,
    decoded_size: e.decodedBodySize || 0,
    dns: Math.max(0, (e.domainLookupEnd || 0) - (e.domainLookupStart || 0)),
    tcp: Math.max(0, (e.connectEnd || 0) - (e.connectStart || 0)),
    tls: e.secureConnectionStart > 0 ? Math.max(0, (e.connectEnd || 0) - e.secureConnectionStart) : 0,
    request: Math.max(0, (e.responseStart || 0) - (e.requestStart || 0)),
    response: Math.max(0, (e.responseEnd || 0) - (e.responseStart || 0))
  };
}
`
	return WrapEval(helper + jsNavTiming + jsCollectPerformance)
}

// DOMSnapshotScript serializes the current document and its stylesheet
// sources for export.
func DOMSnapshotScript() string {
	return WrapEval(`
var doctype = "";
if (document.doctype) doctype = "<!DOCTYPE " + document.doctype.name + ">";
var sheets = [];
for (var i = 0; i < document.styleSheets.length; i++) {
  var sheet = document.styleSheets[i];
  var rules = "";
  try {
    var list = sheet.cssRules || [];
    for (var j = 0; j < list.length; j++) rules += list[j].cssText + "\n";
  } catch (_) {}
  sheets.push({href: sheet.href || "", rules: rules});
}
return JSON.stringify({ok: true, data: {
  url: String(location.href),
  title: String(document.title || ""),
  html: doctype + "\n" + document.documentElement.outerHTML,
  stylesheets: sheets
}});
`)
}

// ReadyStateScript reports document.readyState for the page-ready poll.
func ReadyStateScript() string {
	return WrapEval(`return JSON.stringify({ok: true, data: {ready: document.readyState}});`)
}

// InstalledProbeScript reports whether the instrumentation marker is set.
func InstalledProbeScript() string {
	return WrapEval(`return JSON.stringify({ok: true, data: {installed: Boolean(window.` + markerFlag + `)}});`)
}

// WrapEval wraps a JS body in an IIFE with uniform error capture, matching
// the {ok, data} envelope all evaluation results use.
func WrapEval(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error:String(err && err.message || err)});
}
})()`
}
