package api

import "html/template"

// pageData feeds the index template
type pageData struct {
	Texto        string
	Prediccion   string
	Probabilidad string
}

var pageTemplate = template.Must(template.New("index.html").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Clasificador ODS</title>
</head>
<body>
<h1>Clasificador de textos ODS</h1>

<form method="post" action="/classify">
  <label for="texto">Texto</label>
  <textarea id="texto" name="texto" rows="6" cols="80">{{.Texto}}</textarea>
  <button type="submit">Clasificar</button>
</form>

<form method="post" action="/retrain" enctype="multipart/form-data">
  <label for="file">Datos de entrenamiento (.xlsx o .json)</label>
  <input id="file" type="file" name="file" accept=".xlsx,.json">
  <button type="submit">Reentrenar</button>
</form>

<p id="prediccion">{{.Prediccion}}</p>
<p id="probabilidad">{{.Probabilidad}}</p>
</body>
</html>
`))
