// Package sitehttp реализует HTTP-интерфейс сервера статики:
//   - POST /upload — принимает multipart-архивы (.tar, .tar.zst, .tar.gz), распаковывает их
//     в рабочий каталог и запрашивает перезапуск сессии. Защищён токеном или JWT.
//   - GET /health — размер и число файлов в корне раздачи.
//   - GET /metrics — prometheus, если включено.
//   - GET <route> — файлы, привязанные к путям через routes.
//   - GET /* — статика из корня раздачи: index.html для каталогов, без листинга,
//     страница default вместо 404.
//
// Session поднимает http.Server на одну сессию и возвращает решение reload.Decision.
package sitehttp
