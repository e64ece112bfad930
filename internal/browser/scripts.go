// File: internal/browser/scripts.go
// Description: In-page read scripts owned by the Page implementation.

package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsString renders a Go string as a JavaScript string literal so selectors
// are safe to splice into scripts.
func jsString(s string) string {
	raw, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(raw)
}

// frameURLScript reads the embedded frame's current address. Cross-origin
// access throws a SecurityError; the script converts that into null so the
// caller sees an absent value instead of an exception.
func frameURLScript(selector string) string {
	return fmt.Sprintf(`(function() {
  try {
    var frame = document.querySelector(%s);
    if (!frame || !frame.contentWindow) { return null; }
    return frame.contentWindow.location.href;
  } catch (e) {
    return null;
  }
})();`, jsString(selector))
}

// showOverlayScript flips the overlay element into its visible state,
// returning whether the element was found.
func showOverlayScript(selector string) string {
	return fmt.Sprintf(`(function() {
  var el = document.querySelector(%s);
  if (!el) { return false; }
  el.style.display = 'flex';
  el.style.visibility = 'visible';
  return true;
})();`, jsString(selector))
}
