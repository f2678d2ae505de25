package pipeline

const diarizationPrompt = `Você é um assistente especializado em transcrição de consultas jurídicas.
Abaixo está uma lista de trechos transcritos de uma consulta entre advogado e cliente, com carimbos de tempo.

Atribua cada trecho a um interlocutor ("Advogado", "Cliente" ou outro papel que o conteúdo indicar) e responda SOMENTE com JSON válido, sem explicações, no formato:
[{"speaker": "...", "start": "MM:SS", "end": "MM:SS", "text": "..."}]

Trechos:
`

const dossierPrompt = `Você é um assistente jurídico. A partir da transcrição de uma consulta abaixo, produza um dossiê estruturado em português com as seções:

1. Resumo do caso
2. Partes envolvidas
3. Fatos relatados
4. Questões jurídicas identificadas
5. Providências e próximos passos

Transcrição:
`

const titlePrompt = `Gere um título curto (máximo 8 palavras, sem aspas) em português para uma consulta jurídica com a seguinte transcrição:

`
