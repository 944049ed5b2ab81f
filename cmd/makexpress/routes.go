package main

import (
	"strconv"
	"time"

	"github.com/SaulDoesCode/makexpress"
	"github.com/SaulDoesCode/makexpress/express"
)

func routes(in *mak.Instance) {
	in.Use(express.Wrap(func(req *express.Request, res *express.Response, next func(error)) {
		res.Set("X-Powered-By", "mak")
		res.Locals()["started"] = time.Now()
		next(nil)
	}))

	in.Use(express.Mount("/legacy", func(req *express.Request, res *express.Response) {
		res.Format(
			express.Formatter{Type: "json", Handle: func() {
				res.JSON(map[string]interface{}{"path": req.R.URL.Path, "base": req.BaseURL})
			}},
			express.Formatter{Type: "html", Handle: func() {
				res.Send("<p>" + req.BaseURL + req.R.URL.Path + "</p>")
			}},
		)
	}))

	in.GET("/", express.Handle(func(req *express.Request, res *express.Response) {
		res.Vary("Accept-Language")
		lang := req.AcceptsLanguage("en", "af", "de")
		res.JSON(map[string]interface{}{
			"hello": req.Hostname(),
			"lang":  lang,
			"ip":    req.IP(),
		})
	}))

	in.GET("/users/:name", express.Handle(func(req *express.Request, res *express.Response) {
		res.JSON(map[string]interface{}{"route": req.Route(), "params": req.Params().Map()})
	}))

	in.GET("/jsonp", express.Handle(func(req *express.Request, res *express.Response) {
		res.JSONP(map[string]int{"count": 1})
	}))

	in.GET("/back", express.Handle(func(req *express.Request, res *express.Response) {
		res.Redirect("back")
	}))

	in.GET("/visits", express.Handle(func(req *express.Request, res *express.Response) {
		visits, _ := strconv.Atoi(req.Cookie("visits"))
		visits++
		res.Cookie("visits", visits, &mak.CookieOptions{MaxAge: 24 * time.Hour})
		res.Send(map[string]int{"visits": visits})
	}))

	if in.Config.Assets != "" {
		in.STATIC("/assets/", in.Config.Assets)
	}
}
