// Package http provides JSON response helpers for handlers served by the
// framework router.
//
// # Response
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(200, data)           // raw JSON with status
//	res.Success(data)             // 200 {"data": ...}
//	res.Created(data)             // 201 {"data": ...}
//	res.NoContent()               // 204
//
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.NotFound()                // 404 {"message": "Not found."}
//	res.ServerError()             // 500 {"message": "Server Error."}
//
// # Container errors
//
// Handlers that resolve from the container per request hand failures to
// ResolutionError:
//
//	g, err := container.Resolve[Greeter](app.Container, routing.Param(r, "name"))
//	if err != nil {
//	    res.ResolutionError(err) // 404 when missing, 500 otherwise
//	    return
//	}
package http
