// File: internal/detect/scripts.go
// Description: The JavaScript observers injected into the host page and the
// binding names they report through. Scripts are installed persistently so
// they survive host-page navigations, and every observer is wrapped in
// try/catch: instrumentation must never break the page it watches.

package detect

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Binding names the injected observers call back through. Each detector owns
// exactly one binding so payloads never need demultiplexing.
const (
	bindingMessage     = "framewatchMessage"
	bindingMutation    = "framewatchMutation"
	bindingCustomEvent = "framewatchCustomEvent"
)

// jsStringArray renders a Go string slice as a JavaScript array literal. JSON
// encoding is valid JS source, which keeps event names safe to splice into
// scripts.
func jsStringArray(values []string) string {
	raw, err := json.Marshal(values)
	if err != nil {
		return `[]`
	}
	return string(raw)
}

// messageObserverScript relays every cross-document message to Go along with
// its origin. Origin filtering and success classification happen on the Go
// side so the trusted-origin rule lives in exactly one place.
func messageObserverScript() string {
	return fmt.Sprintf(`(function() {
  if (window.__fwMessageObserver) { return; }
  window.__fwMessageObserver = true;
  window.addEventListener('message', function(ev) {
    try {
      var data = ev.data;
      if (typeof data !== 'string') {
        try { data = JSON.stringify(data); } catch (e) { data = String(data); }
      }
      window.%s(JSON.stringify({ origin: ev.origin || '', data: data }));
    } catch (e) { /* reporting channel gone; nothing to do */ }
  }, false);
})();`, bindingMessage)
}

// mutationObserverScript watches the host document for added text and relays
// it to Go in raw form. The observer handle is kept on window so a stop
// request can disconnect it.
func mutationObserverScript() string {
	return fmt.Sprintf(`(function() {
  if (window.__fwMutationObserver) { return; }
  var collect = function(node) {
    if (!node) { return ''; }
    if (node.nodeType === Node.TEXT_NODE) { return node.textContent || ''; }
    return node.innerText || node.textContent || '';
  };
  var observer = new MutationObserver(function(mutations) {
    try {
      var text = '';
      for (var i = 0; i < mutations.length; i++) {
        var added = mutations[i].addedNodes;
        for (var j = 0; j < added.length; j++) {
          text += ' ' + collect(added[j]);
        }
      }
      text = text.trim();
      if (text) { window.%s(text); }
    } catch (e) { /* reporting channel gone; nothing to do */ }
  });
  var arm = function() {
    observer.observe(document.body, { childList: true, subtree: true });
  };
  if (document.body) { arm(); } else {
    document.addEventListener('DOMContentLoaded', arm, { once: true });
  }
  window.__fwMutationObserver = observer;
})();`, bindingMutation)
}

// mutationDisconnectScript tears the mutation observer down after its first
// positive match.
const mutationDisconnectScript = `(function() {
  if (window.__fwMutationObserver && window.__fwMutationObserver.disconnect) {
    window.__fwMutationObserver.disconnect();
  }
  window.__fwMutationObserver = null;
})();`

// customEventObserverScript listens for each recognized completion event name
// on both window and document, since widget vendors disagree on the dispatch
// target. The event name itself is the payload.
func customEventObserverScript(names []string) string {
	return fmt.Sprintf(`(function() {
  if (window.__fwCustomEventObserver) { return; }
  window.__fwCustomEventObserver = true;
  var names = %s;
  var report = function(name) {
    return function() {
      try { window.%s(name); } catch (e) { /* reporting channel gone */ }
    };
  };
  for (var i = 0; i < names.length; i++) {
    window.addEventListener(names[i], report(names[i]), false);
    document.addEventListener(names[i], report(names[i]), false);
  }
})();`, jsStringArray(names), bindingCustomEvent)
}
