package sitehttp

import (
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const indexFile = "index.html"

// neuteredFileSystem отключает листинг: каталог без index.html считается отсутствующим.
type neuteredFileSystem struct {
	http.FileSystem
}

func (nfs neuteredFileSystem) Open(name string) (http.File, error) {
	f, err := nfs.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if st.IsDir() {
		index, err := nfs.FileSystem.Open(path.Join(name, indexFile))
		if err != nil {
			f.Close()
			return nil, fs.ErrNotExist
		}
		index.Close()
	}

	return f, nil
}

// static отдаёт файлы из корня раздачи, отсутствующие — через notFound.
func (s *Server) static(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)

	f, err := s.fs.Open(name)
	if err != nil {
		s.notFound(w, r)
		return
	}
	f.Close()

	s.files.ServeHTTP(w, r)
}

// routeFile отдаёт file (относительно корня раздачи) по фиксированному пути.
func (s *Server) routeFile(file string) http.HandlerFunc {
	name := path.Clean("/" + filepath.ToSlash(file))

	return func(w http.ResponseWriter, r *http.Request) {
		f, err := s.fs.Open(name)
		if err != nil {
			s.notFound(w, r)
			return
		}
		defer f.Close()

		st, err := f.Stat()
		if err != nil || st.IsDir() {
			s.notFound(w, r)
			return
		}
		http.ServeContent(w, r, st.Name(), st.ModTime(), f)
	}
}

// notFound отдаёт страницу default с её статусом либо обычный 404.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	page := s.Config.Default
	if page == nil {
		http.NotFound(w, r)
		return
	}

	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+page.File)))
	body, err := os.ReadFile(full)
	if err != nil {
		s.Logger.Warn("default page unavailable", "file", page.File, "error", err)
		http.NotFound(w, r)
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(full))
	if ctype == "" {
		ctype = http.DetectContentType(body)
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(page.Status)
	if !strings.EqualFold(r.Method, http.MethodHead) {
		_, _ = w.Write(body)
	}
}
