package server

import (
	"bytes"
	"html/template"
	"net/http"
	"os"

	"github.com/biglinux/bigbashview/pkg/httputil"
)

// ProjectURL is linked from the welcome page.
const ProjectURL = "https://github.com/biglinux/bigbashview"

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<html>
<head><title>Welcome to BigBashView</title></head>
<body style="font-size:large">
<p><i><b>
Hostname: <span style="color:red">{{.Hostname}}</span><br/>
Desktop Environment: <span style="color:red">{{.Desktop}}</span><br/>
Software Revision: <span style="color:red">{{.Version}}</span><br/>
URL: <a href="{{.URL}}" style="text-decoration:none"><span style="color:red">{{.URL}}</span></a>
</b></i></p>
</body>
</html>
`))

type welcomeData struct {
	Hostname string
	Desktop  string
	Version  string
	URL      string
}

func (s *Server) writeWelcome(w http.ResponseWriter) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	data := welcomeData{
		Hostname: hostname,
		Desktop:  os.Getenv("XDG_CURRENT_DESKTOP"),
		Version:  s.cfg.Version,
		URL:      ProjectURL,
	}

	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, data); err != nil {
		s.log.Error("render welcome page", "error", err)
		httputil.WriteText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	httputil.WriteBody(w, http.StatusOK, httputil.ContentTypeHTML, buf.Bytes())
}
