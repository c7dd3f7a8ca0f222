package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/OverseedAI/tubeplanner/pkg/ai"
)

// relay пересылает фрагменты потокового ответа модели клиенту в порядке
// прихода, без переупорядочивания и батчинга. Канонический wire-формат -
// сырой текстовый поток; legacy-фрейминг (строки вида `0:"..."`) включается
// флагом для старых клиентов.
type relay struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	framed  bool
	started bool
}

// newRelay подготавливает потоковый ответ. Возвращает ошибку, если транспорт
// не поддерживает flush (стриминг без него бессмыслен).
func newRelay(w http.ResponseWriter, r *http.Request, framed bool) (*relay, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("транспорт не поддерживает потоковую передачу")
	}
	return &relay{
		w:       w,
		flusher: flusher,
		ctx:     r.Context(),
		framed:  framed,
	}, nil
}

// Sink возвращает обработчик фрагментов для AI клиента. Ошибка после
// отключения клиента прерывает чтение upstream-потока; недочитанный поток
// не приводит к сохранению реплики.
func (s *relay) Sink() ai.ChunkHandler {
	return func(chunk string) error {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		if !s.started {
			s.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			s.w.Header().Set("Cache-Control", "no-cache")
			s.w.Header().Set("X-Accel-Buffering", "no")
			s.w.WriteHeader(http.StatusOK)
			s.started = true
		}

		var err error
		if s.framed {
			// Legacy-формат: каждая строка это "0:" + JSON-строка фрагмента
			_, err = fmt.Fprintf(s.w, "0:%s\n", strconv.Quote(chunk))
		} else {
			_, err = s.w.Write([]byte(chunk))
		}
		if err != nil {
			return err
		}
		s.flusher.Flush()
		return nil
	}
}

// Started сообщает, ушли ли клиенту какие-то байты ответа.
// Если поток не начался, обработчик еще может вернуть обычную JSON ошибку.
func (s *relay) Started() bool {
	return s.started
}
