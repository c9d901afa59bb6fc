package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/joao-brasil/collectflow/internal/model"
)

type normalizer interface {
	Normalize()
}

// decode reads the JSON body into dst, normalizes and validates it. On
// failure the 422 response has been written and false is returned.
func decode[T any](s *server, c *gin.Context, dst *T) bool {
	dec := json.NewDecoder(c.Request.Body)
	if err := dec.Decode(dst); err != nil {
		s.writeValidation(c, []validationDetail{{Loc: []string{"body"}, Msg: err.Error()}})
		return false
	}
	if n, ok := any(dst).(normalizer); ok {
		n.Normalize()
	}
	if err := model.Validate(dst); err != nil {
		s.writeValidation(c, validationDetails(err))
		return false
	}
	return true
}

// contatore parses the :contatore path parameter.
func contatore(s *server, c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("contatore"), 10, 64)
	if err != nil {
		s.writeValidation(c, []validationDetail{{
			Loc: []string{"path", "contatore"},
			Msg: "deve essere un numero intero",
		}})
		return 0, false
	}
	return id, true
}

func (s *server) getPratica(c *gin.Context) {
	id, ok := contatore(s, c)
	if !ok {
		return
	}
	p, err := s.Pratiche.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) createPratica(c *gin.Context) {
	var in model.PraticaCreate
	if !decode(s, c, &in) {
		return
	}
	p, err := s.Pratiche.Create(c.Request.Context(), &in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *server) updatePraticaStatus(c *gin.Context) {
	id, ok := contatore(s, c)
	if !ok {
		return
	}
	var in model.PraticaStatusUpdate
	if !decode(s, c, &in) {
		return
	}
	p, err := s.Pratiche.UpdateStatus(c.Request.Context(), id, &in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// registerResource mounts GET prefix/:contatore and POST prefix/ for rs.
func registerResource[T, C any](g *gin.RouterGroup, s *server, prefix string, rs ResourceService[T, C]) {
	if rs == nil {
		return
	}
	g.GET(prefix+"/:contatore", func(c *gin.Context) {
		id, ok := contatore(s, c)
		if !ok {
			return
		}
		list, err := rs.List(c.Request.Context(), id)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	g.POST(prefix+"/", func(c *gin.Context) {
		var in C
		if !decode(s, c, &in) {
			return
		}
		out, err := rs.Create(c.Request.Context(), &in)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	})
}
