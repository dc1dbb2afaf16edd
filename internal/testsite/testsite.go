// Package testsite is a small web application used as a fixture by the
// pagewalk tests. It serves a page per interaction under test:
//
//   - button.html: clicking the button writes "button was clicked" to #output
//   - text_field.html: a single text input
//   - select.html: a car drop-down; choosing one writes its value to #output
//   - checkbox.html: red and blue pill checkboxes
//   - alert.html: alert and confirm buttons reporting the dialog result
//   - delay.html: #ready appears after a short delay, the button then adds
//     #output after another one
//   - next_page.html: a #next link to button.html
//   - focused.html: a focusable #main-content region
//   - visible.html: shown and hidden divs
//   - javascript.html: defines test_var1 and test_var2 after a delay
//   - requirejs.html: a minimal module loader with a "main" module
//   - ajax.html: a jQuery-like request counter and an ajax button
//   - ajax_no_jquery.html: no jQuery at all
//   - wait.html: delayed output plus a spinner that stops on click
//
// Any request accepts a delay query parameter in seconds, which holds the
// response back before serving it.
package testsite

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

// AjaxResponse is the body served by the ajax endpoint.
const AjaxResponse = "Loaded via an ajax call."

// Handler returns the fixture application.
func Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(delayMiddleware)
	r.HandleFunc("/api/ajax", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, AjaxResponse)
	}).Methods(http.MethodGet)
	r.HandleFunc("/{name}.html", servePage).Methods(http.MethodGet)
	return r
}

func servePage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	body, ok := pages[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, render(name, body))
}

func delayMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := r.URL.Query().Get("delay"); d != "" {
			secs, err := strconv.ParseFloat(d, 64)
			if err != nil || secs < 0 {
				http.Error(w, "invalid delay", http.StatusBadRequest)
				return
			}
			select {
			case <-time.After(time.Duration(secs * float64(time.Second))):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Title returns the document title of the named page: its name with
// underscores replaced by spaces.
func Title(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

func render(name, body string) string {
	return "<!DOCTYPE html>\n<html>\n<head><title>" + Title(name) + "</title></head>\n<body>\n" +
		body + "\n</body>\n</html>\n"
}

// Pages returns every fixture page by URL path ("/button.html"), rendered.
// Offline drivers can serve them without a listener.
func Pages() map[string]string {
	out := make(map[string]string, len(pages))
	for name, body := range pages {
		out["/"+name+".html"] = render(name, body)
	}
	return out
}

// OfflineBase is the origin Offline places the pages under.
const OfflineBase = "http://testsite.test"

// Offline returns every page keyed by its absolute URL under OfflineBase, the
// form htmldriver.WithPages expects.
func Offline() map[string]string {
	out := make(map[string]string, len(pages))
	for path, src := range Pages() {
		out[OfflineBase+path] = src
	}
	return out
}

// URL returns the offline URL of the named page.
func URL(name string) string {
	return OfflineBase + "/" + name + ".html"
}

// Start serves the fixture on a loopback listener for the duration of the
// test and returns its base URL.
func Start(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

var pages = map[string]string{
	"button": `<div id="fixture"><input type="button" value="Click Me" onclick="document.getElementById('output').textContent='button was clicked'"></div>
<div id="output"></div>`,

	"text_field": `<div id="fixture"><input id="name" type="text" value=""></div>`,

	"select": `<div id="fixture">
<select name="cars" onchange="document.getElementById('output').textContent=this.value">
<option value="volvo">Volvo</option>
<option value="saab">Saab</option>
<option value="fiat">Fiat</option>
<option value="audi">Audi</option>
</select>
</div>
<div id="output"></div>`,

	"checkbox": `<div id="fixture">
<input type="checkbox" id="red" name="pill" value="red"><label for="red">Red</label>
<input type="checkbox" id="blue" name="pill" value="blue"><label for="blue">Blue</label>
</div>`,

	"alert": `<div id="fixture">
<button id="alert" onclick="alert('hello'); document.getElementById('output').textContent='alert done'">Alert</button>
<button id="confirm" onclick="document.getElementById('output').textContent = confirm('sure?') ? 'confirmed' : 'cancelled'">Confirm</button>
</div>
<div id="output"></div>`,

	"delay": `<div id="fixture"><button>Go</button></div>
<script>
setTimeout(function() {
  document.querySelector('#fixture button').onclick = function() {
    setTimeout(function() {
      var out = document.createElement('div');
      out.id = 'output';
      out.textContent = 'Done';
      document.body.appendChild(out);
    }, 300);
  };
  var ready = document.createElement('div');
  ready.id = 'ready';
  document.body.appendChild(ready);
}, 300);
</script>`,

	"next_page": `<a id="next" href="button.html">Next</a>`,

	"focused": `<a id="skip" href="#main-content">Skip to content</a>
<div id="main-content" tabindex="-1">Main content</div>`,

	"visible": `<div class="shown">Shown</div>
<div class="hidden" style="display: none">Hidden</div>
<div class="invisible" style="visibility: hidden">Invisible</div>
<div class="outer" hidden><div class="inner">Inner</div></div>`,

	"javascript": `<div id="fixture"><button onclick="document.getElementById('output').textContent = test_var1 + test_var2">Go</button></div>
<div id="output"></div>
<script>
setTimeout(function() { window.test_var1 = 'foo'; }, 200);
setTimeout(function() { window.test_var2 = 'bar'; }, 400);
</script>`,

	"requirejs": `<div id="output"></div>
<script>
(function() {
  var loaded = {};
  var waiting = [];
  function flush() {
    waiting = waiting.filter(function(w) {
      if (w.deps.every(function(d) { return loaded[d]; })) { w.cb(); return false; }
      return true;
    });
  }
  window.require = window.requirejs = function(deps, cb) { waiting.push({deps: deps, cb: cb || function() {}}); flush(); };
  setTimeout(function() {
    document.getElementById('output').textContent = 'RequireJS loaded main';
    loaded.main = true;
    flush();
  }, 300);
})();
</script>`,

	"ajax": `<div id="fixture"><button onclick="load()">Load</button></div>
<div id="output"></div>
<script>
window.jQuery = window.$ = {active: 0, fx: {off: false}};
function load() {
  jQuery.active++;
  var xhr = new XMLHttpRequest();
  xhr.open('GET', '/api/ajax?delay=0.3');
  xhr.onload = function() {
    document.getElementById('output').textContent = xhr.responseText;
    jQuery.active--;
  };
  xhr.send();
}
</script>`,

	"ajax_no_jquery": `<div id="output"></div>`,

	"wait": `<div id="fixture"><button>Show</button></div>
<div id="spinner"><span id="anim" class="playing">spinning</span></div>
<script>
document.getElementById('spinner').onclick = function() {
  setTimeout(function() {
    var anim = document.getElementById('anim');
    anim.classList.remove('playing');
    anim.style.display = 'none';
  }, 300);
};
setTimeout(function() {
  document.querySelector('#fixture button').onclick = function() {
    setTimeout(function() {
      var out = document.createElement('div');
      out.id = 'output';
      out.textContent = 'Button Output';
      document.body.appendChild(out);
    }, 300);
  };
  var ready = document.createElement('div');
  ready.id = 'ready';
  document.body.appendChild(ready);
}, 300);
</script>`,
}
