package responder

import "html/template"

// pageData feeds pageTemplate.
type pageData struct {
	Title      string
	Stylesheet string
	LivePort   int
	Content    template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <meta charset="UTF-8">
    <style>
        body {
            color: rgb(36, 36, 36);
            font-family: source-serif-pro, Georgia, Cambria, "Times New Roman", Times, serif;
            font-size: 20px;
            word-break: break-word;
        }

        h1, h2, h3 {
            color: rgb(36, 36, 36);
            font-family: sohne, "Helvetica Neue", Helvetica, Arial, sans-serif;
        }

        h1 {
            font-size: 42px;
            font-weight: 700;
            margin-top: 49.98px;
            margin-bottom: 20px;
            line-height: 52px;
        }

        h2 {
            font-size: 24px;
            font-weight: 600;
            margin-top: 46.8px;
            margin-bottom: 20px;
            line-height: 30px;
        }

        h3 {
            font-size: 18px;
            font-weight: 510;
            margin-top: 43.5px;
            margin-bottom: 20px;
            line-height: 24px;
        }

        img {
            max-width: 100%;
        }

        a {
            color: inherit;
        }

        blockquote {
            border-left: 2px solid black;
            padding-left: 10px;
            font-style: italic;
        }

        body :not(pre) > code {
            background-color: rgb(242, 242, 242);
            color: rgb(36, 36, 36);
            font-family: source-code-pro, Menlo, Monaco, "Courier New", Courier, monospace;
            font-size: 15px;
            padding: 2px 4px;
        }

        .header {
            align-items: center;
            border-bottom: solid 1px #f2f2f2;
            display: flex;
            height: 57px;
        }

        .header span {
            font-family: "Mona Sans", "Helvetica Neue", Helvetica, Arial, sans-serif;
            font-size: 24px;
            font-weight: 600;
        }

        .container {
            display: flex;
            justify-content: center;
        }

        .content {
            max-width: 680px;
            width: 680px;
        }
    </style>
    <link href="{{.Stylesheet}}" rel="stylesheet">
    <script>
        (function () {
            var host = window.location.hostname || "localhost";
            var ws = new WebSocket("ws://" + host + ":" + {{.LivePort}} + "/");
            ws.onmessage = function (event) {
                document.body.getElementsByClassName("content")[0].innerHTML = event.data;
            };
        })();
    </script>
</head>
<body><div class="header"><span>livemark</span></div><div class="container"><div class="content">{{.Content}}</div></div></body>
</html>
`))
