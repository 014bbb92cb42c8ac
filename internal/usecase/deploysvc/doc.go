// Package deploysvc реализует конвейер загрузки сайта: поток части multipart-запроса
// проходит через chunkio.Bridge, при необходимости через потоковый декодер zstd/gzip,
// и распаковывается archive.Extractor прямо в каталог сайта. Успешная распаковка
// запрашивает перезагрузку сервера.
package deploysvc
