package export

// Имена файлов выгрузки для передачи в инжиниринг.

func ElementsFilename(project string) string { return project + "_elementos.csv" }

func ConnectionsFilename(project string) string { return project + "_conexiones.csv" }

func KMLFilename(project string) string { return project + "_survey.kml" }
