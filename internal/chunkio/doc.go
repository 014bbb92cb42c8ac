// Package chunkio превращает push-источник чанков (транспорт отдаёт данные порциями,
// когда они готовы) в pull-читатель, которому декомпрессор и распаковщик tar
// запрашивают ровно столько байт, сколько нужно.
//
// Bridge держит не более одного чанка: курсор внутри чанка позволяет отдавать его
// по частям за несколько вызовов Read, а исчерпанный чанк сразу отбрасывается.
// Единственная точка ожидания — вызов ChunkSource.NextChunk: горутина паркуется
// планировщиком, пока транспорт не доставит следующую порцию.
package chunkio
