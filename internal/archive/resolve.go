package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourname/staticserve/internal/models"
)

// jail проверяет пути по диску: символические ссылки, уже лежащие в каталоге
// (из этого же архива или от прошлых загрузок), разворачиваются до проверки.
type jail struct {
	root string // реальный путь корня
}

func newJail(root string) (*jail, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve destination: %w", models.ErrIO, err)
	}
	resolved, err := realPath(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve destination: %w", models.ErrIO, err)
	}
	return &jail{root: resolved}, nil
}

// check разворачивает path через ссылки на диске и требует, чтобы результат
// остался внутри корня. name попадает только в текст ошибки.
func (j *jail) check(name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %w", models.ErrIO, name, err)
	}
	resolved, err := realPath(abs)
	if err != nil {
		return fmt.Errorf("%w: entry %q: %w", models.ErrExtract, name, err)
	}
	if !j.contains(resolved) {
		return fmt.Errorf("%w: entry %q escapes destination", models.ErrExtract, name)
	}
	return nil
}

func (j *jail) contains(path string) bool {
	return path == j.root || strings.HasPrefix(path, j.root+string(filepath.Separator))
}

// realPath разворачивает ссылки в самом длинном существующем префиксе path.
// Хвост, которого ещё нет на диске, ссылок содержать не может и
// присоединяется лексически. path не чистится заранее: "ссылка/.." должно
// разворачиваться по диску, а не сокращаться.
func realPath(path string) (string, error) {
	sep := string(filepath.Separator)
	parts := strings.Split(path, sep)

	for i := len(parts); i > 0; i-- {
		prefix := strings.Join(parts[:i], sep)
		if prefix == "" {
			prefix = sep
		}

		resolved, err := filepath.EvalSymlinks(prefix)
		if err == nil {
			if i < len(parts) && danglingLink(resolved, parts[i]) {
				return "", fmt.Errorf("dangling symlink %s", filepath.Join(resolved, parts[i]))
			}
			return filepath.Join(append([]string{resolved}, parts[i:]...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}

	return filepath.Clean(path), nil
}

// danglingLink сообщает, что следующий компонент существует, хотя
// EvalSymlinks его не нашёл: это ссылка в никуда, и лексически её не пройти.
func danglingLink(dir, name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	_, err := os.Lstat(filepath.Join(dir, name))
	return err == nil
}
